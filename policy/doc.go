// Package policy implements the access predicates consulted by every
// state-changing game operation: an opener role set, a global pause
// switch, and a per-caller cooldown.
//
// The game core receives an AccessPolicy explicitly and checks it in the
// order authorization, availability, rate limit. Policy state is never
// ambient; tests swap in their own implementations freely.
package policy
