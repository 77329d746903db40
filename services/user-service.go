package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"os"
	"strings"
	"time"

	"taskmaster/backend/logging"
	"taskmaster/backend/models"

	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

const (
	resetTokenBytes    = 20
	resetTokenLifetime = time.Hour
	resetHashCost      = 12
)

// UserRepository is the persistence surface the auth flows need.
type UserRepository interface {
	Insert(ctx context.Context, user *models.User) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByResetToken(ctx context.Context, token string, now time.Time) (*models.User, error)
	SetResetToken(ctx context.Context, id primitive.ObjectID, token string, expires time.Time) error
	ClearResetToken(ctx context.Context, id primitive.ObjectID) error
	UpdatePassword(ctx context.Context, id primitive.ObjectID, passwordHash string) error
}

// EmailSender delivers outbound mail. The SMTP implementation lives in utils.
type EmailSender interface {
	SendEmail(to, subject, body string) error
}

type UserService struct {
	repo         UserRepository
	jwtService   *JWTService
	emailSender  EmailSender
	emailBreaker *gobreaker.CircuitBreaker
}

func NewUserService(repo UserRepository, jwtService *JWTService, emailSender EmailSender, emailBreaker *gobreaker.CircuitBreaker) *UserService {
	return &UserService{
		repo:         repo,
		jwtService:   jwtService,
		emailSender:  emailSender,
		emailBreaker: emailBreaker,
	}
}

type RegisterInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

func validateRegisterInput(input RegisterInput) *ValidationError {
	var fields []FieldError
	if strings.TrimSpace(input.FirstName) == "" {
		fields = append(fields, FieldError{Field: "firstName", Message: "First name is required"})
	}
	if strings.TrimSpace(input.LastName) == "" {
		fields = append(fields, FieldError{Field: "lastName", Message: "Last name is required"})
	}
	if strings.TrimSpace(input.Username) == "" {
		fields = append(fields, FieldError{Field: "username", Message: "Username is required"})
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(input.Email)); err != nil {
		fields = append(fields, FieldError{Field: "email", Message: "Please include a valid email"})
	}
	if len(input.Password) < 6 {
		fields = append(fields, FieldError{Field: "password", Message: "Please enter a password with 6 or more characters"})
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// Register creates an account and returns it with a fresh bearer token.
// Email and username are stored lowercase so uniqueness is case-insensitive.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*models.User, string, error) {
	if verr := validateRegisterInput(input); verr != nil {
		return nil, "", verr
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	username := strings.ToLower(strings.TrimSpace(input.Username))

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, "", ErrEmailTaken
	} else if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, "", err
	}

	if _, err := s.repo.FindByUsername(ctx, username); err == nil {
		return nil, "", ErrUsernameTaken
	} else if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, "", err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %v", err)
	}

	now := time.Now()
	user := &models.User{
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		Username:  username,
		Email:     email,
		Password:  string(hashed),
		CreatedAt: now,
		UpdatedAt: now,
	}

	user, err = s.repo.Insert(ctx, user)
	if err != nil {
		return nil, "", err
	}

	token, err := s.jwtService.GenerateAuthToken(user.ID.Hex())
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %v", err)
	}

	logging.Logger.Infof("Event ID: USER_REGISTERED, Description: New account created for %s", user.Email)
	return user, token, nil
}

// Login authenticates by email and password. Unknown email and wrong password
// are deliberately indistinguishable.
func (s *UserService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.jwtService.GenerateAuthToken(user.ID.Hex())
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %v", err)
	}

	return user, token, nil
}

// GetUserByID resolves the authenticated identity to its account.
func (s *UserService) GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.repo.FindByID(ctx, id)
}

func generateResetToken() (string, error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate reset token: %v", err)
	}
	return hex.EncodeToString(buf), nil
}

// ForgotPassword stores a reset token on the account and emails the reset
// link. A missing account is not an error; the endpoint must not leak
// existence.
func (s *UserService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.repo.FindByEmail(ctx, email)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	if err != nil {
		return err
	}

	token, err := generateResetToken()
	if err != nil {
		return err
	}

	expires := time.Now().Add(resetTokenLifetime)
	if err := s.repo.SetResetToken(ctx, user.ID, token, expires); err != nil {
		return err
	}

	resetURL := fmt.Sprintf("%s/reset-password/%s", strings.TrimRight(os.Getenv("FRONTEND_URL"), "/"), token)
	body := fmt.Sprintf(
		"You are receiving this email because you (or someone else) have requested the reset of a password for your TaskMaster account.\r\n\r\n"+
			"Please click on the following link, or paste it into your browser to complete the process:\r\n\r\n%s\r\n\r\n"+
			"If you did not request this, please ignore this email and your password will remain unchanged.\r\n", resetURL)

	_, err = s.emailBreaker.Execute(func() (interface{}, error) {
		return nil, s.emailSender.SendEmail(user.Email, "TaskMaster Password Reset Request", body)
	})
	if err != nil {
		// The link never went out, so do not leave a live token behind.
		if clearErr := s.repo.ClearResetToken(ctx, user.ID); clearErr != nil {
			logging.Logger.Errorf("Event ID: RESET_TOKEN_CLEANUP_FAILED, Description: Failed to clear reset token for %s: %v", user.Email, clearErr)
		}
		return fmt.Errorf("failed to send password reset email: %v", err)
	}

	logging.Logger.Infof("Event ID: PASSWORD_RESET_REQUESTED, Description: Reset link sent to %s", user.Email)
	return nil
}

// ResetPassword consumes a reset token, stores the new hash and returns a
// fresh bearer token.
func (s *UserService) ResetPassword(ctx context.Context, token, password string) (string, error) {
	if len(password) < 6 {
		return "", &ValidationError{Fields: []FieldError{
			{Field: "password", Message: "Please enter a password with 6 or more characters"},
		}}
	}

	user, err := s.repo.FindByResetToken(ctx, token, time.Now())
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", ErrResetTokenInvalid
	}
	if err != nil {
		return "", err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), resetHashCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %v", err)
	}

	if err := s.repo.UpdatePassword(ctx, user.ID, string(hashed)); err != nil {
		return "", err
	}

	jwtToken, err := s.jwtService.GenerateAuthToken(user.ID.Hex())
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %v", err)
	}

	logging.Logger.Infof("Event ID: PASSWORD_RESET_COMPLETED, Description: Password reset for %s", user.Email)
	return jwtToken, nil
}
