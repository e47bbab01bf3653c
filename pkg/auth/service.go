// Package auth registers and authenticates users, issues and validates
// session tokens, and owns the per-user budget settings.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"fintrack/models"
	"fintrack/pkg/apperr"
	"fintrack/pkg/store"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// bcrypt rejects passwords longer than 72 bytes.
const (
	minPasswordLen = 6
	maxPasswordLen = 72
)

func checkPassword(fe apperr.FieldErrors, password string) {
	switch {
	case len(password) < minPasswordLen:
		fe.Add("password", "must be at least 6 characters")
	case len(password) > maxPasswordLen:
		fe.Add("password", "must be at most 72 bytes")
	}
}

func checkBudget(fe apperr.FieldErrors, budget decimal.Decimal) {
	if budget.IsNegative() {
		fe.Add("monthlyBudget", "must not be negative")
		return
	}
	if msg := models.MoneyProblem(budget); msg != "" {
		fe.Add("monthlyBudget", msg)
	}
}

// Session is what a successful register or login hands back.
type Session struct {
	Token string            `json:"token"`
	User  models.PublicUser `json:"user"`
}

// RegisterInput is what a new account is created from.
type RegisterInput struct {
	Username    string
	Password    string
	DisplayName string
	// MonthlyBudget defaults to zero (budget tracking off).
	MonthlyBudget *decimal.Decimal
}

// Service owns user accounts and the tokens that identify them.
type Service struct {
	users  store.UserStore
	secret []byte
	ttl    time.Duration
	cost   int
	// dummyHash is compared against on unknown usernames so a failed login
	// costs the same whether or not the user exists.
	dummyHash []byte
}

// Option configures a Service.
type Option func(*Service)

// WithBcryptCost overrides bcrypt.DefaultCost; tests use bcrypt.MinCost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

// NewService fails when secret is empty.
func NewService(users store.UserStore, secret []byte, ttl time.Duration, opts ...Option) (*Service, error) {
	s := &Service{users: users, secret: secret, ttl: ttl, cost: bcrypt.DefaultCost}
	for _, o := range opts {
		o(s)
	}
	if len(secret) == 0 {
		return nil, errors.New("auth: empty signing secret")
	}
	h, err := bcrypt.GenerateFromPassword([]byte("fintrack-timing-equalizer"), s.cost)
	if err != nil {
		return nil, err
	}
	s.dummyHash = h
	return s, nil
}

var errInvalidCredentials = apperr.New(apperr.Unauthorized, "invalid credentials")

func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	username := strings.TrimSpace(in.Username)
	fe := apperr.FieldErrors{}
	if username == "" {
		fe.Add("username", "is required")
	}
	checkPassword(fe, in.Password)
	budget := decimal.Zero
	if in.MonthlyBudget != nil {
		budget = *in.MonthlyBudget
		checkBudget(fe, budget)
	}
	if err := fe.Err(); err != nil {
		return nil, err
	}

	existing, err := s.users.FindUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.New(apperr.Conflict, "username already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, err
	}
	displayName := strings.TrimSpace(in.DisplayName)
	if displayName == "" {
		displayName = username
	}
	user := &models.User{
		Username:             username,
		DisplayName:          displayName,
		HashedPassword:       hash,
		MonthlyBudget:        budget,
		BudgetAlertThreshold: models.DefaultAlertThreshold,
	}
	// the store reports a Conflict itself when a concurrent register wins
	if err := s.users.InsertUser(ctx, user); err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Info().Uint("user_id", user.ID).Str("username", username).Msg("user registered")
	return s.session(user)
}

func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	user, err := s.users.FindUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if user == nil {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return nil, errInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(user.HashedPassword, []byte(password)); err != nil {
		return nil, errInvalidCredentials
	}
	return s.session(user)
}

func (s *Service) session(user *models.User) (*Session, error) {
	token, err := GenerateToken(user.ID, s.secret, s.ttl)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: user.Public()}, nil
}

// ValidateToken resolves a bearer token to its user. Every failure reads the
// same to the caller.
func (s *Service) ValidateToken(ctx context.Context, token string) (*models.User, error) {
	id, err := ParseToken(token, s.secret)
	if err != nil {
		return nil, apperr.Wrap(apperr.Unauthorized, "invalid token", err)
	}
	user, err := s.users.FindUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.New(apperr.Unauthorized, "invalid token")
	}
	return user, nil
}

func (s *Service) UpdateBudget(ctx context.Context, user *models.User, monthlyBudget decimal.Decimal, alertThreshold int) (models.PublicUser, error) {
	fe := apperr.FieldErrors{}
	checkBudget(fe, monthlyBudget)
	if alertThreshold < 1 || alertThreshold > 100 {
		fe.Add("budgetAlertThreshold", "must be between 1 and 100")
	}
	if err := fe.Err(); err != nil {
		return models.PublicUser{}, err
	}
	updated, err := s.users.UpdateUser(ctx, user.ID, store.UserUpdate{
		MonthlyBudget:        &monthlyBudget,
		BudgetAlertThreshold: &alertThreshold,
	})
	if err != nil {
		return models.PublicUser{}, err
	}
	if updated == nil {
		// the user vanished between token validation and the update
		return models.PublicUser{}, apperr.New(apperr.Unauthorized, "invalid token")
	}
	return updated.Public(), nil
}

// ResetPassword replaces a user's password. It is an operator action and
// is not exposed over HTTP.
func (s *Service) ResetPassword(ctx context.Context, username, password string) error {
	fe := apperr.FieldErrors{}
	checkPassword(fe, password)
	if err := fe.Err(); err != nil {
		return err
	}
	user, err := s.users.FindUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return err
	}
	if user == nil {
		return apperr.New(apperr.NotFound, "user not found")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return err
	}
	_, err = s.users.UpdateUser(ctx, user.ID, store.UserUpdate{HashedPassword: hash})
	return err
}

// Demo account created by EnsureDemoUser.
const (
	DemoUsername = "user"
	DemoPassword = "123456"
)

// EnsureDemoUser creates the demo account with a 1000 budget when it is
// missing. It reports whether a user was created.
func (s *Service) EnsureDemoUser(ctx context.Context) (bool, error) {
	existing, err := s.users.FindUserByUsername(ctx, DemoUsername)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}
	budget := decimal.NewFromInt(1000)
	_, err = s.Register(ctx, RegisterInput{Username: DemoUsername, Password: DemoPassword, MonthlyBudget: &budget})
	if err != nil {
		return false, err
	}
	return true, nil
}
