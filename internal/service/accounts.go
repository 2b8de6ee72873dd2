package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"ledgerdesk/backend/internal/domain"
	"ledgerdesk/backend/internal/store"
)

// SetupRequired reports whether no user account exists yet.
func (s *Service) SetupRequired(ctx context.Context) (bool, error) {
	var n int
	err := s.repo.View(ctx, func(tx store.Tx) error {
		var err error
		n, err = tx.CountUsers(ctx)
		return err
	})
	return n == 0, err
}

// Setup creates the first superadmin. It is refused once any account exists.
func (s *Service) Setup(ctx context.Context, req domain.SetupRequest) (domain.UserAccount, error) {
	req.Username = normalizeUsername(req.Username)
	if err := validate(req); err != nil {
		return domain.UserAccount{}, err
	}
	if strings.ContainsAny(req.Username, " \t\r\n") {
		return domain.UserAccount{}, invalidField("username", "excludesall")
	}
	hash, err := hashPassword(req.Password)
	if err != nil {
		return domain.UserAccount{}, err
	}

	user := domain.UserAccount{Username: req.Username, Password: hash, Role: domain.RoleSuperadmin, IsActive: true}
	err = s.repo.Update(ctx, func(tx store.Tx) error {
		n, err := tx.CountUsers(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			return ruleError(ReasonSetupCompleted, "setup has already been completed")
		}
		user.ID, err = tx.CreateUser(ctx, user)
		return err
	})
	if err != nil {
		return domain.UserAccount{}, err
	}
	s.logger.Info("initial superadmin created", zap.String("username", user.Username))
	return user, nil
}

// Authenticate checks credentials and stamps the login time.
func (s *Service) Authenticate(ctx context.Context, req domain.LoginRequest) (domain.UserAccount, error) {
	username := normalizeUsername(req.Username)
	if username == "" || strings.TrimSpace(req.Password) == "" {
		return domain.UserAccount{}, ErrInvalidCredentials
	}

	var user domain.UserAccount
	err := s.repo.Update(ctx, func(tx store.Tx) error {
		var err error
		user, err = tx.GetUserByUsername(ctx, username)
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidCredentials
		}
		if err != nil {
			return err
		}
		if !verifyPassword(user.Password, req.Password) {
			return ErrInvalidCredentials
		}
		if !user.IsActive {
			return ErrAccountInactive
		}
		now := s.now()
		user.LastLogin = &now
		return tx.TouchLastLogin(ctx, user.ID, now)
	})
	if err != nil {
		return domain.UserAccount{}, err
	}
	return user, nil
}

func (s *Service) CurrentUser(ctx context.Context) (domain.UserAccount, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.UserAccount{}, ErrInvalidCredentials
	}
	var user domain.UserAccount
	err := s.repo.View(ctx, func(tx store.Tx) error {
		var err error
		user, err = tx.GetUserByUsername(ctx, actor.Username)
		return err
	})
	return user, err
}

func (s *Service) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	var users []domain.UserAccount
	err := s.repo.View(ctx, func(tx store.Tx) error {
		var err error
		users, err = tx.ListUsers(ctx)
		return err
	})
	return users, err
}

func (s *Service) CreateUser(ctx context.Context, req domain.UserCreateRequest) (domain.UserAccount, error) {
	req.Username = normalizeUsername(req.Username)
	if err := validate(req); err != nil {
		return domain.UserAccount{}, err
	}
	if strings.ContainsAny(req.Username, " \t\r\n") {
		return domain.UserAccount{}, invalidField("username", "excludesall")
	}
	hash, err := hashPassword(req.Password)
	if err != nil {
		return domain.UserAccount{}, err
	}

	user := domain.UserAccount{
		Username:   req.Username,
		Password:   hash,
		Role:       req.Role,
		IsActive:   true,
		EmployeeID: req.EmployeeID,
	}
	err = s.repo.Update(ctx, func(tx store.Tx) error {
		if user.EmployeeID != nil {
			if _, err := tx.GetEmployee(ctx, *user.EmployeeID); err != nil {
				return notFound("employee", *user.EmployeeID, err)
			}
		}
		id, err := tx.CreateUser(ctx, user)
		if err != nil {
			return conflict("username", err)
		}
		user.ID = id
		return nil
	})
	if err != nil {
		return domain.UserAccount{}, err
	}
	return user, nil
}

func (s *Service) SetUserActive(ctx context.Context, id int64, req domain.StatusRequest) error {
	if err := validate(req); err != nil {
		return err
	}
	return s.repo.Update(ctx, func(tx store.Tx) error {
		return notFound("user", id, tx.SetUserActive(ctx, id, *req.IsActive))
	})
}

// DeleteUser removes an account. Superadmin accounts cannot be deleted.
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	var user domain.UserAccount
	err := s.repo.Update(ctx, func(tx store.Tx) error {
		var err error
		user, err = tx.GetUser(ctx, id)
		if err != nil {
			return notFound("user", id, err)
		}
		if user.Role == domain.RoleSuperadmin {
			return ruleError(ReasonProtectedAccount, "superadmin accounts cannot be deleted")
		}
		return tx.DeleteUser(ctx, id)
	})
	if err != nil {
		return err
	}
	s.logger.Info("user deleted", zap.Int64("user_id", id), zap.String("username", user.Username))
	return nil
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func verifyPassword(stored string, input string) bool {
	if stored == "" || strings.TrimSpace(input) == "" || !isPasswordHash(stored) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(input)) == nil
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func isPasswordHash(value string) bool {
	return strings.HasPrefix(value, "$2a$") || strings.HasPrefix(value, "$2b$") || strings.HasPrefix(value, "$2y$")
}
