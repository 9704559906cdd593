// Package server provides HTTP routing, middleware, and OAuth handling for CLI and web interfaces.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
// [LoggingMiddleware] and [RecoverMiddleware] are installed by the serve command.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # OAuth Callback Handling
//
// [ExchangeCallback] validates the state parameter (CSRF protection) and exchanges the authorization code for tokens.
//
// [OAuthHandler] wraps it for the CLI: a temporary server on the configured host and port handles one callback,
// sends the result through a channel, and shuts down. It only processes one callback to prevent replay attacks.
// The web application calls [ExchangeCallback] directly with a state kept in a cookie.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
