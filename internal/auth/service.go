// Package auth signs storefront users in and out through the external account service.
package auth

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/jwfoods/internal/common"
	"github.com/noah-isme/jwfoods/internal/events"
	"github.com/noah-isme/jwfoods/internal/remote"
	"github.com/noah-isme/jwfoods/internal/store"
)

var (
	userKey            = store.NewKey[remote.User]("user")
	rememberedEmailKey = store.NewKey[string]("rememberedEmail")
)

// ErrUnauthenticated is returned when an operation needs a signed-in user.
var ErrUnauthenticated = common.NewAppError(common.CodeUnauth, "authentication required", http.StatusUnauthorized, nil)

// Accounts is the external account service.
type Accounts interface {
	Login(ctx context.Context, email, password string) (remote.User, error)
	Register(ctx context.Context, in remote.Registration) (string, error)
}

// Registration is the sign-up form.
type Registration struct {
	FirstName    string `json:"firstName" validate:"required"`
	LastName     string `json:"lastName" validate:"required"`
	Email        string `json:"email" validate:"required,email"`
	ConfirmEmail string `json:"confirmEmail" validate:"eqfield=Email"`
	Password     string `json:"password" validate:"min=8"`
}

// Session is what the storefront knows about the signed-in user.
type Session struct {
	User            *remote.User `json:"user"`
	RememberedEmail string       `json:"rememberedEmail,omitempty"`
}

// Service implements login, registration and logout over the session store.
type Service struct {
	store    *store.Store
	accounts Accounts
	events   events.Emitter
	validate *validator.Validate
	logger   zerolog.Logger
}

// Config configures the auth service.
type Config struct {
	Store    *store.Store
	Accounts Accounts
	Events   events.Emitter
	Logger   zerolog.Logger
}

// NewService constructs a Service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("auth: store is required")
	}
	if cfg.Accounts == nil {
		return nil, errors.New("auth: accounts client is required")
	}
	if cfg.Events == nil {
		cfg.Events = events.Nop{}
	}
	return &Service{
		store:    cfg.Store,
		accounts: cfg.Accounts,
		events:   cfg.Events,
		validate: common.NewValidator(),
		logger:   cfg.Logger,
	}, nil
}

// Login authenticates against the account service and stores the returned user. With
// remember set the email is kept for the next visit, otherwise it is forgotten.
func (s *Service) Login(ctx context.Context, email, password string, remember bool) (remote.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return remote.User{}, common.NewValidationError("email and password are required", nil)
	}
	sc, err := s.store.Scope(ctx)
	if err != nil {
		return remote.User{}, err
	}
	user, err := s.accounts.Login(ctx, email, password)
	if err != nil {
		return remote.User{}, err
	}
	if err := userKey.Set(ctx, sc, user); err != nil {
		return remote.User{}, err
	}
	if remember {
		err = rememberedEmailKey.Set(ctx, sc, email)
	} else {
		err = rememberedEmailKey.Remove(ctx, sc)
	}
	if err != nil {
		return remote.User{}, err
	}
	s.events.Publish(ctx, events.TopicUserLoggedIn, user.ID, map[string]string{"userId": user.ID})
	return user, nil
}

// Register validates the form and creates the account remotely. It does not sign in.
func (s *Service) Register(ctx context.Context, in Registration) (string, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)
	in.ConfirmEmail = strings.TrimSpace(in.ConfirmEmail)
	if err := s.validate.Struct(in); err != nil {
		return "", common.NewValidationError("invalid registration", common.FieldErrors(err))
	}
	msg, err := s.accounts.Register(ctx, remote.Registration{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Password:  in.Password,
	})
	if err != nil {
		return "", err
	}
	s.events.Publish(ctx, events.TopicUserRegistered, "", map[string]string{"email": in.Email})
	return msg, nil
}

// Logout forgets the signed-in user. The remembered email survives.
func (s *Service) Logout(ctx context.Context) error {
	sc, err := s.store.Scope(ctx)
	if err != nil {
		return err
	}
	return userKey.Remove(ctx, sc)
}

// Me returns the session's user, if any, and the remembered email.
func (s *Service) Me(ctx context.Context) (Session, error) {
	sc, err := s.store.Scope(ctx)
	if err != nil {
		return Session{}, err
	}
	var out Session
	user, ok, err := userKey.Get(ctx, sc)
	if err != nil {
		return Session{}, err
	}
	if ok {
		out.User = &user
	}
	if out.RememberedEmail, _, err = rememberedEmailKey.Get(ctx, sc); err != nil {
		return Session{}, err
	}
	return out, nil
}

// CurrentUser returns the signed-in user or ErrUnauthenticated.
func (s *Service) CurrentUser(ctx context.Context) (remote.User, error) {
	sc, err := s.store.Scope(ctx)
	if err != nil {
		return remote.User{}, ErrUnauthenticated
	}
	user, ok, err := userKey.Get(ctx, sc)
	if err != nil {
		return remote.User{}, err
	}
	if !ok {
		return remote.User{}, ErrUnauthenticated
	}
	return user, nil
}

var (
	upperRe = regexp.MustCompile(`[A-Z]`)
	lowerRe = regexp.MustCompile(`[a-z]`)
	digitRe = regexp.MustCompile(`\d`)
	otherRe = regexp.MustCompile(`[^A-Za-z0-9]`)
)

// PasswordStrength scores pw from 0 to 5, one point each for length >= 8, an upper case
// letter, a lower case letter, a digit and a symbol.
func PasswordStrength(pw string) int {
	score := 0
	if len(pw) >= 8 {
		score++
	}
	for _, re := range []*regexp.Regexp{upperRe, lowerRe, digitRe, otherRe} {
		if re.MatchString(pw) {
			score++
		}
	}
	return score
}

// StrengthLabel names a PasswordStrength score.
func StrengthLabel(score int) string {
	switch {
	case score <= 0:
		return "Too short"
	case score <= 2:
		return "Weak"
	case score == 3:
		return "Medium"
	default:
		return "Strong"
	}
}
