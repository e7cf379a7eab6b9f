package http

import "github.com/labstack/echo/v4"

// Handler defines HTTP route registration interface.
type Handler interface {
	RegisterRoutes(e *echo.Echo)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(e *echo.Echo)

func (f HandlerFunc) RegisterRoutes(e *echo.Echo) { f(e) }

// CombineHandlers registers several handlers on one server. Nil entries are
// skipped.
func CombineHandlers(handlers ...Handler) Handler {
	return HandlerFunc(func(e *echo.Echo) {
		for _, h := range handlers {
			if h != nil {
				h.RegisterRoutes(e)
			}
		}
	})
}
