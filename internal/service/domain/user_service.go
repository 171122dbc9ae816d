package domain

import (
	"errors"
	"net/mail"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/qs-lzh/eventpro/internal/model"
	"github.com/qs-lzh/eventpro/internal/repository"
	"github.com/qs-lzh/eventpro/internal/service"
	"github.com/qs-lzh/eventpro/internal/util"
)

type Registration struct {
	Email    string         `json:"email"`
	Name     string         `json:"name"`
	Password string         `json:"password"`
	Phone    string         `json:"phone"`
	Role     model.UserRole `json:"role"`
}

type ProfileUpdate struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type UserService interface {
	Register(reg Registration) (*model.User, error)
	Authenticate(email, password string) (*model.User, bool, error)
	UpdateProfile(userID uint, update ProfileUpdate) (*model.User, error)
	ChangePassword(userID uint, current, next string) error
	SetActive(userID uint, active bool) (*model.User, error)
	ChangeRole(userID uint, role model.UserRole) (*model.User, error)
	MigrateLegacyPasswords() (int, error)

	GetUserByID(id uint) (*model.User, error)
	GetUserByEmail(email string) (*model.User, error)
	GetAllUsers() ([]model.User, error)
	GetUsersByRole(role model.UserRole, activeOnly bool) ([]model.User, error)
	SearchUsers(keyword string) ([]model.User, error)
	GetUserStatistics(userID uint) (*model.UserStatistics, error)
	GetGlobalStatistics() (*model.UserGlobalStatistics, error)
}

type userService struct {
	db              *gorm.DB
	repo            repository.UserRepo
	eventRepo       repository.EventRepo
	reservationRepo repository.ReservationRepo
	hasher          PasswordHasher
	clock           util.Clock
	logger          *zap.Logger
}

var _ UserService = (*userService)(nil)

func NewUserService(db *gorm.DB, userRepo repository.UserRepo, eventRepo repository.EventRepo,
	reservationRepo repository.ReservationRepo, hasher PasswordHasher, clock util.Clock, logger *zap.Logger) *userService {
	return &userService{
		db:              db,
		repo:            userRepo,
		eventRepo:       eventRepo,
		reservationRepo: reservationRepo,
		hasher:          hasher,
		clock:           clock,
		logger:          logger,
	}
}

// Register creates an active account. Self-registration may ask for the
// CLIENT or ORGANIZER role; CLIENT is the default.
func (s *userService) Register(reg Registration) (*model.User, error) {
	email, err := normalizeEmail(reg.Email)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(reg.Name)
	if name == "" {
		return nil, service.BadRequest("name is required")
	}

	role := reg.Role
	switch role {
	case "":
		role = model.RoleClient
	case model.RoleClient, model.RoleOrganizer:
	case model.RoleAdmin:
		return nil, service.Forbidden("admin accounts can not be self-registered")
	default:
		return nil, service.BadRequest("unknown role %q", role)
	}

	var user *model.User
	err = s.db.Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		exists, err := repo.ExistsByEmail(email)
		if err != nil {
			return err
		}
		if exists {
			return service.Conflict("an account with this email already exists")
		}
		if err := s.checkStrength(reg.Password); err != nil {
			return err
		}

		hash, err := s.hasher.Hash(reg.Password)
		if err != nil {
			return err
		}
		user = &model.User{
			Email:          email,
			Name:           name,
			Phone:          strings.TrimSpace(reg.Phone),
			HashedPassword: hash,
			Role:           role,
			Active:         true,
			RegisteredAt:   s.clock.Now(),
		}
		return repo.Create(user)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered", zap.Uint("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, nil
}

// Authenticate returns the user and true when the credentials match. An
// unknown email or a wrong password yields false with no error.
func (s *userService) Authenticate(email, password string) (*model.User, bool, error) {
	user, err := s.repo.GetByEmail(strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if !user.Active {
		return nil, false, service.BadRequest("this account is deactivated")
	}
	if !util.IsHashed(user.HashedPassword) {
		s.logger.Warn("login against a legacy plaintext password", zap.Uint("user_id", user.ID))
		return nil, false, nil
	}
	if !s.hasher.Verify(password, user.HashedPassword) {
		return nil, false, nil
	}
	return user, true, nil
}

func (s *userService) UpdateProfile(userID uint, update ProfileUpdate) (*model.User, error) {
	var updated *model.User
	err := s.db.Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		user, err := repo.GetByID(userID)
		if err != nil {
			return service.NotFoundOr(err, "user", userID)
		}

		if update.Email != "" {
			email, err := normalizeEmail(update.Email)
			if err != nil {
				return err
			}
			if email != user.Email {
				exists, err := repo.ExistsByEmail(email)
				if err != nil {
					return err
				}
				if exists {
					return service.Conflict("this email is already in use")
				}
				user.Email = email
			}
		}
		if name := strings.TrimSpace(update.Name); name != "" {
			user.Name = name
		}
		user.Phone = strings.TrimSpace(update.Phone)

		if err := repo.Save(user); err != nil {
			return err
		}
		updated = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *userService) ChangePassword(userID uint, current, next string) error {
	user, err := s.repo.GetByID(userID)
	if err != nil {
		return service.NotFoundOr(err, "user", userID)
	}
	if !util.IsHashed(user.HashedPassword) || !s.hasher.Verify(current, user.HashedPassword) {
		return service.BadRequest("current password is incorrect")
	}
	if err := s.checkStrength(next); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(user.ID, hash); err != nil {
		return err
	}
	s.logger.Info("password changed", zap.Uint("user_id", user.ID))
	return nil
}

func (s *userService) SetActive(userID uint, active bool) (*model.User, error) {
	user, err := s.repo.GetByID(userID)
	if err != nil {
		return nil, service.NotFoundOr(err, "user", userID)
	}
	user.Active = active
	if err := s.repo.Save(user); err != nil {
		return nil, err
	}
	s.logger.Info("user activation changed", zap.Uint("user_id", userID), zap.Bool("active", active))
	return user, nil
}

func (s *userService) ChangeRole(userID uint, role model.UserRole) (*model.User, error) {
	if !role.Valid() {
		return nil, service.BadRequest("unknown role %q", role)
	}
	user, err := s.repo.GetByID(userID)
	if err != nil {
		return nil, service.NotFoundOr(err, "user", userID)
	}
	user.Role = role
	if err := s.repo.Save(user); err != nil {
		return nil, err
	}
	s.logger.Info("user role changed", zap.Uint("user_id", userID), zap.String("role", string(role)))
	return user, nil
}

// MigrateLegacyPasswords hashes every stored password that is still in
// plaintext and returns how many accounts were upgraded.
func (s *userService) MigrateLegacyPasswords() (int, error) {
	migrated := 0
	err := s.db.Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		users, err := repo.ListAll()
		if err != nil {
			return err
		}
		for _, user := range users {
			if util.IsHashed(user.HashedPassword) {
				continue
			}
			hash, err := s.hasher.Hash(user.HashedPassword)
			if err != nil {
				return err
			}
			if err := repo.UpdatePassword(user.ID, hash); err != nil {
				return err
			}
			migrated++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("legacy passwords migrated", zap.Int("count", migrated))
	return migrated, nil
}

func (s *userService) GetUserByID(id uint) (*model.User, error) {
	user, err := s.repo.GetByID(id)
	if err != nil {
		return nil, service.NotFoundOr(err, "user", id)
	}
	return user, nil
}

func (s *userService) GetUserByEmail(email string) (*model.User, error) {
	user, err := s.repo.GetByEmail(strings.TrimSpace(email))
	if err != nil {
		return nil, service.NotFoundOr(err, "user", email)
	}
	return user, nil
}

func (s *userService) GetAllUsers() ([]model.User, error) {
	return s.repo.ListAll()
}

func (s *userService) GetUsersByRole(role model.UserRole, activeOnly bool) ([]model.User, error) {
	if !role.Valid() {
		return nil, service.BadRequest("unknown role %q", role)
	}
	if activeOnly {
		return s.repo.ListActiveByRole(role)
	}
	return s.repo.ListByRole(role)
}

func (s *userService) SearchUsers(keyword string) ([]model.User, error) {
	if strings.TrimSpace(keyword) == "" {
		return s.repo.ListAll()
	}
	return s.repo.Search(keyword)
}

func (s *userService) GetUserStatistics(userID uint) (*model.UserStatistics, error) {
	user, err := s.repo.GetByID(userID)
	if err != nil {
		return nil, service.NotFoundOr(err, "user", userID)
	}

	stats := &model.UserStatistics{UserID: user.ID}
	if user.Role.Can(model.CapManageOwnEvents) {
		byStatus, err := s.eventRepo.CountByStatus(user.ID)
		if err != nil {
			return nil, err
		}
		for _, n := range byStatus {
			stats.EventsCreated += n
		}
	}

	scope := repository.ReservationScope{UserID: user.ID}
	byStatus, err := s.reservationRepo.CountByStatus(scope)
	if err != nil {
		return nil, err
	}
	for _, n := range byStatus {
		stats.TotalReservations += n
	}
	stats.TotalSpent, err = s.reservationRepo.ConfirmedRevenue(scope)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *userService) GetGlobalStatistics() (*model.UserGlobalStatistics, error) {
	byRole, err := s.repo.CountByRole()
	if err != nil {
		return nil, err
	}
	active, err := s.repo.CountActive()
	if err != nil {
		return nil, err
	}

	stats := &model.UserGlobalStatistics{ByRole: byRole, Active: active}
	for _, n := range byRole {
		stats.Total += n
	}
	stats.Inactive = stats.Total - active
	return stats, nil
}

func (s *userService) checkStrength(password string) error {
	if s.hasher.IsStrong(password) {
		return nil
	}
	if msg := util.PasswordWeakness(password); msg != "" {
		return service.BadRequest("%s", msg)
	}
	return service.BadRequest("password is too weak")
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", service.BadRequest("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", service.BadRequest("invalid email address %q", raw)
	}
	return email, nil
}
