package usersController

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"eyeshield/internal/logger"
	. "eyeshield/internal/models"
	"eyeshield/internal/repositories"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidRole        = errors.New("invalid role")
	ErrInvalidInput       = errors.New("username and password are required")
)

const maxActivityEntries = 500

type Activity struct {
	User      string    `json:"user"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

type UsersController struct {
	userRepo repositories.UserRepository
	cost     int
	now      func() time.Time
	log      logger.Logger

	mu       sync.Mutex
	activity []Activity
}

func New(userRepo repositories.UserRepository) *UsersController {
	return &UsersController{
		userRepo: userRepo,
		cost:     bcrypt.DefaultCost,
		now:      time.Now,
		log:      logger.New("UsersController"),
	}
}

func (c *UsersController) Create(ctx context.Context, username, password string, role Role) (UserAccount, error) {
	log := c.log.Function("Create")

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return UserAccount{}, ErrInvalidInput
	}
	if !role.Valid() {
		return UserAccount{}, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), c.cost)
	if err != nil {
		return UserAccount{}, log.Err("failed to hash password", err, "username", username)
	}

	user := UserAccount{Username: username, Role: role, PasswordHash: string(hash)}
	if err := c.userRepo.Create(ctx, &user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return UserAccount{}, fmt.Errorf("%w: %s", ErrUserExists, username)
		}
		return UserAccount{}, log.Err("failed to create user", err, "username", username)
	}

	c.record(username, "Created as "+string(role))
	log.Info("user created", "username", username, "role", role)
	return user, nil
}

// Authenticate returns the account when password matches. Unknown users and
// wrong passwords are indistinguishable to the caller.
func (c *UsersController) Authenticate(ctx context.Context, username, password string) (UserAccount, error) {
	log := c.log.Function("Authenticate")

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return UserAccount{}, ErrInvalidCredentials
	}

	user, err := c.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return UserAccount{}, ErrInvalidCredentials
		}
		return UserAccount{}, log.Err("failed to look up user", err, "username", username)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		log.Warn("failed login", "username", username)
		return UserAccount{}, ErrInvalidCredentials
	}

	c.record(username, "Logged in")
	return *user, nil
}

func (c *UsersController) List(ctx context.Context) ([]UserAccount, error) {
	users, err := c.userRepo.GetAll(ctx)
	if err != nil {
		return nil, c.log.Function("List").Err("failed to list users", err)
	}
	return users, nil
}

func (c *UsersController) UpdateRole(ctx context.Context, username string, role Role) error {
	log := c.log.Function("UpdateRole")

	username = strings.TrimSpace(username)
	if !role.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	if err := c.userRepo.UpdateRole(ctx, username, role); err != nil {
		return c.mapNotFound(log, "failed to update role", username, err)
	}

	c.record(username, "Role changed to "+string(role))
	return nil
}

func (c *UsersController) ResetPassword(ctx context.Context, username, password string) error {
	log := c.log.Function("ResetPassword")

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), c.cost)
	if err != nil {
		return log.Err("failed to hash password", err, "username", username)
	}

	if err := c.userRepo.UpdatePasswordHash(ctx, username, string(hash)); err != nil {
		return c.mapNotFound(log, "failed to reset password", username, err)
	}

	c.record(username, "Password reset")
	return nil
}

func (c *UsersController) Delete(ctx context.Context, username string) error {
	log := c.log.Function("Delete")

	username = strings.TrimSpace(username)
	if err := c.userRepo.Delete(ctx, username); err != nil {
		return c.mapNotFound(log, "failed to delete user", username, err)
	}

	c.record(username, "Deleted")
	return nil
}

// Activity returns this process's user actions, oldest first.
func (c *UsersController) Activity() []Activity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.activity)
}

func (c *UsersController) record(user, action string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.activity = append(c.activity, Activity{User: user, Action: action, Timestamp: c.now()})
	if over := len(c.activity) - maxActivityEntries; over > 0 {
		c.activity = slices.Delete(c.activity, 0, over)
	}
}

func (c *UsersController) mapNotFound(log logger.Logger, msg, username string, err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}
	return log.Err(msg, err, "username", username)
}
