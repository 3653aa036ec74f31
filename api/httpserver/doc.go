// Package httpserver provides the reusable HTTP server shared by the
// game and oracle binaries.
//
// BaseServer wires a chi router with standard middleware, structured
// request logging, health endpoints (/livez, /readyz), drain control for
// load balancers (/drain, /undrain), an optional metrics listener, and
// optional pprof. Components contribute their routes through the
// RouteRegistrar interface.
package httpserver
