package store

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Stores bundles the gorm-backed stores sharing one connection.
type Stores struct {
	Users          UserStore
	Organizations  OrganizationStore
	Members        MemberStore
	Roles          RoleStore
	Invitations    InvitationStore
	Subscriptions  SubscriptionStore
	Surveys        SurveyStore
	BlogPosts      BlogPostStore
	Impersonations ImpersonationStore
}

// NewStores wires every store to db.
func NewStores(db *gorm.DB) *Stores {
	return &Stores{
		Users:          NewUserStore(db),
		Organizations:  NewOrganizationStore(db),
		Members:        NewMemberStore(db),
		Roles:          NewRoleStore(db),
		Invitations:    NewInvitationStore(db),
		Subscriptions:  NewSubscriptionStore(db),
		Surveys:        NewSurveyStore(db),
		BlogPosts:      NewBlogPostStore(db),
		Impersonations: NewImpersonationStore(db),
	}
}

// translate maps gorm errors onto the store sentinels. The connection must be
// opened with TranslateError so unique violations surface as ErrDuplicatedKey.
func translate(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", op, ErrConflict)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// requireRow turns a zero-row update or delete into ErrNotFound.
func requireRow(op string, result *gorm.DB) error {
	if result.Error != nil {
		return translate(op, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
