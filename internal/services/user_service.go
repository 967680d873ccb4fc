package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Dias221467/finance-goals/internal/models"
	"github.com/Dias221467/finance-goals/internal/repository"
	"github.com/Dias221467/finance-goals/pkg/email"
	"github.com/Dias221467/finance-goals/pkg/validation"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserService encapsulates the business logic for user operations.
type UserService struct {
	repo    UserStore
	mailer  Mailer
	baseURL string
	now     Clock
}

// NewUserService creates a new instance of UserService. Verification links
// point at baseURL.
func NewUserService(repo UserStore, mailer Mailer, baseURL string) *UserService {
	return &UserService{
		repo:    repo,
		mailer:  mailer,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
}

// WithClock replaces the time source.
func (s *UserService) WithClock(now Clock) *UserService {
	s.now = now
	return s
}

// RegisterUser registers a new user after hashing their password.
func (s *UserService) RegisterUser(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	logrus.Info("Registering new user")

	if err := validation.Struct(req); err != nil {
		logrus.WithError(err).Warn("Invalid registration request")
		return nil, err
	}
	address := strings.ToLower(strings.TrimSpace(req.Email))

	// Check if the email is already registered
	if _, err := s.repo.GetUserByEmail(ctx, address); err == nil {
		logrus.WithField("email", address).Warn("Email already in use")
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up email: %w", err)
	}

	// Hash the user's password.
	hashedPwd, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		logrus.WithError(err).Error("Password hashing failed")
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	user := &models.User{
		Username:       req.Username,
		Email:          address,
		HashedPassword: string(hashedPwd),
		Role:           "user",
		IsVerified:     false,
		VerifyToken:    uuid.NewString(),
		Currency:       models.DefaultCurrency,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	// Create the user in the repository.
	createdUser, err := s.repo.CreateUser(ctx, user)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		logrus.WithError(err).Error("User registration failed")
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	body, err := email.Render(email.TemplateVerifyEmail, map[string]string{
		"Username": createdUser.Username,
		"Link":     fmt.Sprintf("%s/users/verify?token=%s", s.baseURL, createdUser.VerifyToken),
	})
	if err != nil {
		return nil, err
	}
	if err := s.mailer.SendEmail(createdUser.Email, "Email Verification", body); err != nil {
		logrus.WithError(err).Error("Failed to send verification email")
		return nil, fmt.Errorf("failed to send verification email: %w", err)
	}
	logrus.Infof("Sent verification email to %s", createdUser.Email)

	logrus.WithFields(logrus.Fields{
		"userID": createdUser.ID.Hex(),
		"role":   createdUser.Role,
	}).Info("User registered successfully")

	return createdUser, nil
}

// VerifyEmail marks the account the token was issued to as verified.
func (s *UserService) VerifyEmail(ctx context.Context, token string) error {
	// Look up user by the verification token
	user, err := s.repo.GetUserByVerificationToken(ctx, token)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrInvalidToken
	}
	if err != nil {
		return fmt.Errorf("failed to look up verification token: %w", err)
	}

	user.IsVerified = true
	user.VerifyToken = ""
	user.UpdatedAt = s.now()

	if _, err := s.repo.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("failed to update user verification status: %w", err)
	}

	logrus.WithField("userID", user.ID.Hex()).Info("Email verified")
	return nil
}

// AuthenticateUser verifies the email and password and returns the user if credentials are valid.
func (s *UserService) AuthenticateUser(ctx context.Context, req models.LoginRequest) (*models.User, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	address := strings.ToLower(strings.TrimSpace(req.Email))
	logrus.WithField("email", address).Info("Authenticating user")

	user, err := s.repo.GetUserByEmail(ctx, address)
	if errors.Is(err, repository.ErrNotFound) {
		logrus.WithField("email", address).Warn("User not found")
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	// Compare the provided password with the hashed password.
	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(req.Password)); err != nil {
		logrus.WithField("email", address).Warn("Invalid credentials")
		return nil, ErrInvalidCredentials
	}

	// Email verification check
	if !user.IsVerified {
		logrus.WithField("email", address).Warn("Attempt to login with unverified email")
		return nil, ErrEmailNotVerified
	}

	logrus.WithField("userID", user.ID.Hex()).Info("User authenticated successfully")
	return user, nil
}

// GetUser retrieves a user by their ID.
func (s *UserService) GetUser(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		logrus.WithError(err).Warn("Failed to retrieve user")
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// UpdateProfile applies a partial profile update.
func (s *UserService) UpdateProfile(ctx context.Context, id primitive.ObjectID, req models.UpdateProfileRequest) (*models.User, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Username != nil {
		user.Username = *req.Username
	}
	if req.MonthlyIncome != nil {
		user.MonthlyIncome = req.MonthlyIncome
	}
	if req.Currency != nil {
		user.Currency = *req.Currency
	}
	user.UpdatedAt = s.now()

	updated, err := s.repo.UpdateUser(ctx, user)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		logrus.WithError(err).Error("Failed to update user in service")
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	logrus.WithField("userID", updated.ID.Hex()).Info("User updated successfully in service")
	return updated, nil
}

// UpdateLastActive stamps the user's last request time.
func (s *UserService) UpdateLastActive(ctx context.Context, id primitive.ObjectID) error {
	return s.repo.UpdateLastActive(ctx, id, s.now())
}
