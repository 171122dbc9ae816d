package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/qs-lzh/eventpro/internal/model"
)

type UserRepo interface {
	WithTx(tx *gorm.DB) UserRepo
	Create(user *model.User) error
	Save(user *model.User) error
	GetByID(id uint) (*model.User, error)
	GetByEmail(email string) (*model.User, error)
	ExistsByEmail(email string) (bool, error)
	ListAll() ([]model.User, error)
	ListByRole(role model.UserRole) ([]model.User, error)
	ListActiveByRole(role model.UserRole) ([]model.User, error)
	Search(keyword string) ([]model.User, error)
	UpdatePassword(id uint, hashedPassword string) error
	CountByRole() (map[model.UserRole]int64, error)
	CountActive() (int64, error)
}

type userRepoGorm struct {
	db *gorm.DB
}

var _ UserRepo = (*userRepoGorm)(nil)

func NewUserRepoGorm(db *gorm.DB) *userRepoGorm {
	return &userRepoGorm{
		db: db,
	}
}

func (r *userRepoGorm) WithTx(tx *gorm.DB) UserRepo {
	return &userRepoGorm{
		db: tx,
	}
}

func (r *userRepoGorm) Create(user *model.User) error {
	ctx := context.Background()
	return gorm.G[model.User](r.db).Create(ctx, user)
}

func (r *userRepoGorm) Save(user *model.User) error {
	return r.db.Save(user).Error
}

func (r *userRepoGorm) GetByID(id uint) (*model.User, error) {
	ctx := context.Background()
	user, err := gorm.G[model.User](r.db).Where("id = ?", id).First(ctx)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail matches email case-insensitively.
func (r *userRepoGorm) GetByEmail(email string) (*model.User, error) {
	ctx := context.Background()
	user, err := gorm.G[model.User](r.db).Where("LOWER(email) = ?", strings.ToLower(email)).First(ctx)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepoGorm) ExistsByEmail(email string) (bool, error) {
	_, err := r.GetByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *userRepoGorm) ListAll() ([]model.User, error) {
	ctx := context.Background()
	return gorm.G[model.User](r.db).Order("id").Find(ctx)
}

func (r *userRepoGorm) ListByRole(role model.UserRole) ([]model.User, error) {
	ctx := context.Background()
	return gorm.G[model.User](r.db).Where("role = ?", role).Order("id").Find(ctx)
}

func (r *userRepoGorm) ListActiveByRole(role model.UserRole) ([]model.User, error) {
	ctx := context.Background()
	return gorm.G[model.User](r.db).Where("role = ? AND active = ?", role, true).Order("id").Find(ctx)
}

// Search matches keyword against name and email, case-insensitively.
func (r *userRepoGorm) Search(keyword string) ([]model.User, error) {
	ctx := context.Background()
	pattern := likePattern(keyword)
	return gorm.G[model.User](r.db).
		Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", pattern, pattern).
		Order("name").
		Find(ctx)
}

func (r *userRepoGorm) UpdatePassword(id uint, hashedPassword string) error {
	ctx := context.Background()
	_, err := gorm.G[model.User](r.db).Where("id = ?", id).Update(ctx, "hashed_password", hashedPassword)
	return err
}

func (r *userRepoGorm) CountByRole() (map[model.UserRole]int64, error) {
	var rows []struct {
		Role  model.UserRole
		Count int64
	}
	if err := r.db.Model(&model.User{}).
		Select("role, COUNT(*) AS count").
		Group("role").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[model.UserRole]int64, len(model.UserRoles))
	for _, role := range model.UserRoles {
		counts[role] = 0
	}
	for _, row := range rows {
		counts[row.Role] = row.Count
	}
	return counts, nil
}

func (r *userRepoGorm) CountActive() (int64, error) {
	ctx := context.Background()
	return gorm.G[model.User](r.db).Where("active = ?", true).Count(ctx, "*")
}

func likePattern(keyword string) string {
	return "%" + strings.ToLower(strings.TrimSpace(keyword)) + "%"
}
