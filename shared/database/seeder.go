package database

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"surveyhub-backend/shared/database/models"
	"surveyhub-backend/shared/utils/permission"
)

var systemRoles = []models.Role{
	{Slug: models.RoleOwner, Name: "Owner", Description: "Full control including billing and deletion", IsSystem: true},
	{Slug: models.RoleAdmin, Name: "Admin", Description: "Manages members, invitations and surveys", IsSystem: true},
	{Slug: models.RoleEditor, Name: "Editor", Description: "Creates and edits surveys", IsSystem: true},
	{Slug: models.RoleViewer, Name: "Viewer", Description: "Read-only access", IsSystem: true},
}

// SeedDatabase seeds permissions, system roles and the role matrix, then
// promotes the configured super admin. Safe to run repeatedly.
func SeedDatabase(db *gorm.DB, superAdminEmail string, log *zap.Logger) error {
	return db.Transaction(func(tx *gorm.DB) error {
		permsCreated, byKey, err := seedPermissions(tx)
		if err != nil {
			return err
		}

		rolesCreated, err := seedRoles(tx, byKey)
		if err != nil {
			return err
		}

		if err := seedSuperAdmin(tx, superAdminEmail, log); err != nil {
			return err
		}

		log.Info("database seeding completed",
			zap.Int("permissions_created", permsCreated),
			zap.Int("roles_created", rolesCreated),
		)
		return nil
	})
}

func seedPermissions(tx *gorm.DB) (int, map[string]models.Permission, error) {
	created := 0
	byKey := map[string]models.Permission{}
	for _, p := range permission.AllPermissions() {
		var existing models.Permission
		err := tx.Where("resource = ? AND action = ?", p.Resource, p.Action).First(&existing).Error
		switch {
		case err == nil:
			byKey[existing.Key()] = existing
			continue
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return created, nil, fmt.Errorf("looking up permission %s: %w", p.Key(), err)
		}

		if err := tx.Create(&p).Error; err != nil {
			return created, nil, fmt.Errorf("creating permission %s: %w", p.Key(), err)
		}
		byKey[p.Key()] = p
		created++
	}
	return created, byKey, nil
}

func seedRoles(tx *gorm.DB, byKey map[string]models.Permission) (int, error) {
	matrix := permission.DefaultRoleMatrix()
	created := 0
	for _, role := range systemRoles {
		var existing models.Role
		err := tx.Where("slug = ?", role.Slug).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			existing = role
			if err := tx.Create(&existing).Error; err != nil {
				return created, fmt.Errorf("creating role %s: %w", role.Slug, err)
			}
			created++
		case err != nil:
			return created, fmt.Errorf("looking up role %s: %w", role.Slug, err)
		}

		perms := make([]models.Permission, 0, len(matrix[role.Slug]))
		for _, key := range matrix[role.Slug] {
			perms = append(perms, byKey[key])
		}
		if err := tx.Model(&existing).Association("Permissions").Replace(perms); err != nil {
			return created, fmt.Errorf("assigning permissions to %s: %w", role.Slug, err)
		}
	}
	return created, nil
}

// seedSuperAdmin flags the configured account as super admin, creating a
// placeholder row the auth provider links on first sign-in.
func seedSuperAdmin(tx *gorm.DB, email string, log *zap.Logger) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}

	var user models.User
	err := tx.Where("LOWER(email) = ?", email).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = models.User{Email: email, FirstName: "Super", LastName: "Admin", IsSuperAdmin: true}
		if err := tx.Create(&user).Error; err != nil {
			return fmt.Errorf("creating super admin: %w", err)
		}
		log.Info("super admin created", zap.String("email", email))
		return nil
	case err != nil:
		return fmt.Errorf("looking up super admin: %w", err)
	}

	if user.IsSuperAdmin {
		return nil
	}
	if err := tx.Model(&user).Update("is_super_admin", true).Error; err != nil {
		return fmt.Errorf("promoting super admin: %w", err)
	}
	log.Info("super admin promoted", zap.String("email", email))
	return nil
}
