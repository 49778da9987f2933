package sessions

import (
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
)

// NewHTTPServer builds a fiber backed server with the session controller
// mounted. Callers that embed the controller in an existing router should
// use RegisterSessionRoutes directly instead.
func NewHTTPServer(controller *SessionController, opts ...func(*fiber.App) *fiber.App) router.Server[*fiber.App] {
	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		a = router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:  true,
			StrictRouting: false,
		}))
		for _, opt := range opts {
			a = opt(a)
		}
		return a
	})

	RegisterSessionRoutes(srv.Router(), controller)

	return srv
}
