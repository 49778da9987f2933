package sessions

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// SessionControllerRoutes are the mounted paths, relative to the group the
// host registers the controller on.
type SessionControllerRoutes struct {
	Login        string
	Register     string
	Verify       string
	VerifyResend string
	Federated    string
	Refresh      string
	Me           string
}

// SessionController exposes the session lifecycle over JSON HTTP.
type SessionController struct {
	Manager SessionManager
	Config  Config
	Logger  Logger
	Routes  *SessionControllerRoutes
}

type SessionControllerOption func(*SessionController) *SessionController

func WithControllerLogger(logger Logger) SessionControllerOption {
	return func(c *SessionController) *SessionController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func NewSessionController(manager SessionManager, cfg Config, opts ...SessionControllerOption) *SessionController {
	c := &SessionController{
		Manager: manager,
		Config:  cfg,
		Logger:  defLogger{},
		Routes: &SessionControllerRoutes{
			Login:        "/login",
			Register:     "/register",
			Verify:       "/verify",
			VerifyResend: "/verify/resend",
			Federated:    "/federated",
			Refresh:      "/refresh",
			Me:           "/me",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Manager == nil {
		panic("Missing SessionManager in session controller...")
	}

	return c
}

// RegisterSessionRoutes mounts the session routes on the given router group.
// Refresh and Me require a valid bearer token; everything else is anonymous.
func RegisterSessionRoutes[T any](app router.Router[T], c *SessionController) {
	protected := RequireSession(c.Manager.TokenService(), c.Config.GetContextKey(), nil)

	app.Post(c.Routes.Login, c.Login)
	app.Post(c.Routes.Register, c.Register)
	app.Post(c.Routes.Verify, c.VerifyEmail)
	app.Get(c.Routes.VerifyResend, c.ResendVerification)
	app.Post(c.Routes.Federated, c.FederatedLogin)
	app.Post(c.Routes.Refresh, c.RefreshSession, protected)
	app.Get(c.Routes.Me, c.CurrentUser, protected)
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

func (c *SessionController) Login(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		return c.badPayload(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return c.invalidPayload(ctx, err)
	}

	bundle, err := c.Manager.Login(ctx.Context(), payload.Email, payload.Password)
	if err != nil {
		return c.handleError(ctx, err)
	}

	return c.respondWithSession(ctx, bundle)
}

// RegisterRequest payload
type RegisterRequest struct {
	DisplayName string `form:"display_name" json:"display_name"`
	Username    string `form:"username" json:"username"`
	Email       string `form:"email" json:"email"`
	Password    string `form:"password" json:"password"`
}

// Validate will validate the payload
func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.DisplayName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Username, validation.Required, validation.Length(2, 100)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
	)
}

func (c *SessionController) Register(ctx router.Context) error {
	payload := new(RegisterRequest)

	if err := ctx.Bind(payload); err != nil {
		return c.badPayload(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return c.invalidPayload(ctx, err)
	}

	msg := RegisterUserMessage{
		DisplayName: payload.DisplayName,
		Username:    payload.Username,
		Email:       payload.Email,
		Password:    payload.Password,
		Origin:      ctx.Header("Origin"),
	}

	if err := c.Manager.Register(ctx.Context(), msg); err != nil {
		return c.handleError(ctx, err)
	}

	// No session yet: the account stays pending until the email confirms.
	return ctx.JSON(router.StatusOK, map[string]string{
		"status": "pending_confirmation",
	})
}

// VerifyEmailRequest payload
type VerifyEmailRequest struct {
	Email string `form:"email" json:"email" query:"email"`
	Token string `form:"token" json:"token" query:"token"`
}

// Validate will validate the payload
func (r VerifyEmailRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Token, validation.Required),
	)
}

func (c *SessionController) VerifyEmail(ctx router.Context) error {
	payload := &VerifyEmailRequest{
		Email: ctx.Query("email"),
		Token: ctx.Query("token"),
	}

	if payload.Email == "" || payload.Token == "" {
		if err := ctx.Bind(payload); err != nil {
			return c.badPayload(ctx, err)
		}
	}

	if err := payload.Validate(); err != nil {
		return c.invalidPayload(ctx, err)
	}

	if err := c.Manager.ConfirmEmail(ctx.Context(), ConfirmEmailMessage{
		Email: payload.Email,
		Token: payload.Token,
	}); err != nil {
		return c.handleError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]string{
		"status": "email_confirmed",
	})
}

func (c *SessionController) ResendVerification(ctx router.Context) error {
	email := ctx.Query("email")
	if email == "" {
		return c.invalidPayload(ctx, errors.New("email is required", errors.CategoryBadInput))
	}

	if err := c.Manager.ResendVerification(ctx.Context(), EmailVerificationRequestMessage{
		Email:  email,
		Origin: ctx.Header("Origin"),
	}); err != nil {
		return c.handleError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]string{
		"status": "verification_resent",
	})
}

// FederatedLoginRequest payload
type FederatedLoginRequest struct {
	AccessToken string `form:"access_token" json:"access_token"`
}

// Validate will validate the payload
func (r FederatedLoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.AccessToken, validation.Required),
	)
}

func (c *SessionController) FederatedLogin(ctx router.Context) error {
	payload := new(FederatedLoginRequest)

	if err := ctx.Bind(payload); err != nil {
		return c.badPayload(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return c.invalidPayload(ctx, err)
	}

	bundle, err := c.Manager.FederatedLogin(ctx.Context(), payload.AccessToken)
	if err != nil {
		return c.handleError(ctx, err)
	}

	return c.respondWithSession(ctx, bundle)
}

func (c *SessionController) RefreshSession(ctx router.Context) error {
	claims, err := GetRouterSession(ctx, c.Config.GetContextKey())
	if err != nil {
		return c.handleError(ctx, ErrTokenMalformed)
	}

	presented := ctx.Cookies(c.Config.GetRefreshCookieName(), "")

	bundle, err := c.Manager.RefreshSession(ctx.Context(), claims.UserID(), presented)
	if err != nil {
		return c.handleError(ctx, err)
	}

	return c.respondWithSession(ctx, bundle)
}

func (c *SessionController) CurrentUser(ctx router.Context) error {
	claims, err := GetRouterSession(ctx, c.Config.GetContextKey())
	if err != nil {
		return c.handleError(ctx, ErrTokenMalformed)
	}

	bundle, err := c.Manager.CurrentSession(ctx.Context(), claims.UserID())
	if err != nil {
		return c.handleError(ctx, err)
	}

	return c.respondWithSession(ctx, bundle)
}

func (c *SessionController) respondWithSession(ctx router.Context, bundle *SessionBundle) error {
	if bundle.RefreshToken != "" {
		SetRefreshCookie(ctx, c.Config.GetRefreshCookieName(), bundle.RefreshToken, bundle.RefreshExpiresAt)
	}

	return ctx.JSON(router.StatusOK, bundle)
}

func (c *SessionController) badPayload(ctx router.Context, err error) error {
	c.Logger.Error("session controller parse payload", "error", err)
	return ctx.JSON(router.StatusBadRequest, map[string]string{
		"error": "failed to parse request body",
	})
}

func (c *SessionController) invalidPayload(ctx router.Context, err error) error {
	c.Logger.Error("session controller validate payload", "error", err)
	return ctx.JSON(router.StatusBadRequest, map[string]any{
		"error":      "invalid payload",
		"validation": FormatValidationErrorToMap(err),
	})
}

func (c *SessionController) handleError(ctx router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		c.Logger.Error("session controller unexpected error", "error", err)
		return ctx.JSON(router.StatusInternalServerError, map[string]string{
			"error": "an unexpected error occurred",
		})
	}

	status := richErr.Code
	if status == 0 {
		status = router.StatusInternalServerError
	}

	body := map[string]any{
		"error": richErr.Message,
	}
	if richErr.TextCode != "" {
		body["code"] = richErr.TextCode
	}
	if field, ok := richErr.Metadata["field"]; ok {
		body["field"] = field
	}

	return ctx.JSON(status, body)
}
