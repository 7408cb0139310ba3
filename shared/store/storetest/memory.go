// Package storetest provides in-memory store implementations for handler tests.
package storetest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"surveyhub-backend/shared/database/models"
	"surveyhub-backend/shared/store"
	"surveyhub-backend/shared/utils/query"
)

// DB is a shared in-memory dataset. The stores returned by its accessors
// see each other's writes, which lets tests cross entity boundaries the way
// the gorm stores do.
type DB struct {
	mu             sync.Mutex
	users          map[uuid.UUID]models.User
	orgs           map[uuid.UUID]models.Organization
	members        map[uuid.UUID]models.OrganizationMember
	roles          map[uuid.UUID]models.Role
	rolePerms      map[uuid.UUID][]string
	invitations    map[uuid.UUID]models.OrganizationInvitation
	subscriptions  map[uuid.UUID]models.Subscription
	surveys        map[uuid.UUID]models.Survey
	posts          map[uuid.UUID]models.BlogPost
	impersonations map[uuid.UUID]models.ImpersonationSession
}

func New() *DB {
	return &DB{
		users:          map[uuid.UUID]models.User{},
		orgs:           map[uuid.UUID]models.Organization{},
		members:        map[uuid.UUID]models.OrganizationMember{},
		roles:          map[uuid.UUID]models.Role{},
		rolePerms:      map[uuid.UUID][]string{},
		invitations:    map[uuid.UUID]models.OrganizationInvitation{},
		subscriptions:  map[uuid.UUID]models.Subscription{},
		surveys:        map[uuid.UUID]models.Survey{},
		posts:          map[uuid.UUID]models.BlogPost{},
		impersonations: map[uuid.UUID]models.ImpersonationSession{},
	}
}

// Stores returns every store backed by d.
func (d *DB) Stores() *store.Stores {
	return &store.Stores{
		Users:          d.Users(),
		Organizations:  d.Organizations(),
		Members:        d.Members(),
		Roles:          d.Roles(),
		Invitations:    d.Invitations(),
		Subscriptions:  d.Subscriptions(),
		Surveys:        d.Surveys(),
		BlogPosts:      d.BlogPosts(),
		Impersonations: d.Impersonations(),
	}
}

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func paginate[T any](items []T, params query.Params) []T {
	if params.Limit <= 0 {
		return items
	}
	start := params.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := start + params.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func matches(search string, fields ...string) bool {
	if search == "" {
		return true
	}
	needle := strings.ToLower(search)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

// ---- roles ----

// SeedRole stores a role with the given permission keys and returns it.
func (d *DB) SeedRole(slug string, permissionKeys ...string) models.Role {
	d.mu.Lock()
	defer d.mu.Unlock()
	role := models.Role{ID: uuid.New(), Slug: slug, Name: strings.ToUpper(slug[:1]) + slug[1:], IsSystem: true}
	d.roles[role.ID] = role
	d.rolePerms[role.ID] = append([]string(nil), permissionKeys...)
	return role
}

type roleStore struct{ d *DB }

func (d *DB) Roles() store.RoleStore { return &roleStore{d} }

func (s *roleStore) GetByID(_ context.Context, id uuid.UUID) (*models.Role, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	role, ok := s.d.roles[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &role, nil
}

func (s *roleStore) GetBySlug(_ context.Context, slug string) (*models.Role, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	for _, role := range s.d.roles {
		if role.Slug == slug {
			r := role
			return &r, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *roleStore) List(_ context.Context) ([]models.Role, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	roles := make([]models.Role, 0, len(s.d.roles))
	for _, role := range s.d.roles {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].Slug < roles[j].Slug })
	return roles, nil
}

func (s *roleStore) PermissionKeys(_ context.Context, roleID uuid.UUID) ([]string, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	keys := append([]string(nil), s.d.rolePerms[roleID]...)
	sort.Strings(keys)
	return keys, nil
}

// ---- users ----

type userStore struct{ d *DB }

func (d *DB) Users() store.UserStore { return &userStore{d} }

// AddUser stores u, assigning an id when missing.
func (d *DB) AddUser(u models.User) models.User {
	d.mu.Lock()
	defer d.mu.Unlock()
	ensureID(&u.ID)
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	d.users[u.ID] = u
	return u
}

func (s *userStore) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	u, ok := s.d.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (s *userStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	for _, u := range s.d.users {
		if strings.EqualFold(u.Email, email) {
			found := u
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *userStore) GetByExternalID(_ context.Context, externalID string) (*models.User, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	for _, u := range s.d.users {
		if u.ExternalID != nil && *u.ExternalID == externalID {
			found := u
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *userStore) UpsertByExternalID(_ context.Context, user *models.User) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	for id, u := range s.d.users {
		if u.ExternalID != nil && user.ExternalID != nil && *u.ExternalID == *user.ExternalID {
			u.Email = user.Email
			u.FirstName = user.FirstName
			u.LastName = user.LastName
			u.AvatarURL = user.AvatarURL
			u.UpdatedAt = time.Now().UTC()
			s.d.users[id] = u
			*user = u
			return nil
		}
	}
	for _, u := range s.d.users {
		if strings.EqualFold(u.Email, user.Email) {
			return store.ErrConflict
		}
	}
	ensureID(&user.ID)
	user.CreatedAt = time.Now().UTC()
	s.d.users[user.ID] = *user
	return nil
}

func (s *userStore) Update(_ context.Context, user *models.User) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if _, ok := s.d.users[user.ID]; !ok {
		return store.ErrNotFound
	}
	for _, u := range s.d.users {
		if u.ID != user.ID && strings.EqualFold(u.Email, user.Email) {
			return store.ErrConflict
		}
	}
	user.UpdatedAt = time.Now().UTC()
	s.d.users[user.ID] = *user
	return nil
}

func (s *userStore) List(_ context.Context, params query.Params) ([]models.User, int64, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	var users []models.User
	for _, u := range s.d.users {
		if matches(params.Search, u.Email, u.FirstName, u.LastName) {
			users = append(users, u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Email < users[j].Email })
	return paginate(users, params), int64(len(users)), nil
}

func (s *userStore) Count(_ context.Context) (int64, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	return int64(len(s.d.users)), nil
}

// ---- organizations ----

type organizationStore struct{ d *DB }

func (d *DB) Organizations() store.OrganizationStore { return &organizationStore{d} }

func (s *organizationStore) GetByID(_ context.Context, id uuid.UUID) (*models.Organization, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	org, ok := s.d.orgs[id]
	if !ok || org.DeletedAt.Valid {
		return nil, store.ErrNotFound
	}
	return &org, nil
}

func (s *organizationStore) GetBySlug(_ context.Context, slug string) (*models.Organization, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	for _, org := range s.d.orgs {
		if org.Slug == slug {
			found := org
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *organizationStore) Create(_ context.Context, org *models.Organization, ownerRoleID uuid.UUID) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	for _, existing := range s.d.orgs {
		if existing.Slug == org.Slug {
			return store.ErrConflict
		}
	}
	ensureID(&org.ID)
	now := time.Now().UTC()
	org.CreatedAt, org.UpdatedAt = now, now
	s.d.orgs[org.ID] = *org
	member := models.OrganizationMember{
		ID:             uuid.New(),
		OrganizationID: org.ID,
		UserID:         org.OwnerID,
		RoleID:         ownerRoleID,
		JoinedAt:       now,
	}
	s.d.members[member.ID] = member
	return nil
}

func (s *organizationStore) Update(_ context.Context, org *models.Organization) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if _, ok := s.d.orgs[org.ID]; !ok {
		return store.ErrNotFound
	}
	for _, existing := range s.d.orgs {
		if existing.ID != org.ID && existing.Slug == org.Slug {
			return store.ErrConflict
		}
	}
	org.UpdatedAt = time.Now().UTC()
	s.d.orgs[org.ID] = *org
	return nil
}

func (s *organizationStore) Delete(_ context.Context, id uuid.UUID) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	org, ok := s.d.orgs[id]
	if !ok || org.DeletedAt.Valid {
		return store.ErrNotFound
	}
	org.DeletedAt.Time = time.Now().UTC()
	org.DeletedAt.Valid = true
	s.d.orgs[id] = org
	return nil
}

func (s *organizationStore) live() []models.Organization {
	orgs := make([]models.Organization, 0, len(s.d.orgs))
	for _, org := range s.d.orgs {
		if !org.DeletedAt.Valid {
			orgs = append(orgs, org)
		}
	}
	sort.Slice(orgs, func(i, j int) bool { return orgs[i].Name < orgs[j].Name })
	return orgs
}

func (s *organizationStore) ListForUser(_ context.Context, userID uuid.UUID) ([]models.Organization, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	var orgs []models.Organization
	for _, org := range s.live() {
		for _, m := range s.d.members {
			if m.OrganizationID == org.ID && m.UserID == userID {
				orgs = append(orgs, org)
				break
			}
		}
	}
	return orgs, nil
}

func (s *organizationStore) ListOwnedBy(_ context.Context, userID uuid.UUID) ([]models.Organization, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	var orgs []models.Organization
	for _, org := range s.live() {
		if org.OwnerID == userID {
			orgs = append(orgs, org)
		}
	}
	return orgs, nil
}

func (s *organizationStore) CountOwnedBy(ctx context.Context, userID uuid.UUID) (int64, error) {
	orgs, err := s.ListOwnedBy(ctx, userID)
	return int64(len(orgs)), err
}

func (s *organizationStore) List(_ context.Context, params query.Params) ([]models.Organization, int64, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	var orgs []models.Organization
	for _, org := range s.live() {
		if matches(params.Search, org.Name, org.Slug) {
			orgs = append(orgs, org)
		}
	}
	return paginate(orgs, params), int64(len(orgs)), nil
}

func (s *organizationStore) Count(_ context.Context) (int64, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	return int64(len(s.live())), nil
}

// ---- members ----

type memberStore struct{ d *DB }

func (d *DB) Members() store.MemberStore { return &memberStore{d} }

func (s *memberStore) hydrate(m models.OrganizationMember) models.OrganizationMember {
	m.Role = s.d.roles[m.RoleID]
	m.User = s.d.users[m.UserID]
	return m
}

func (s *memberStore) Get(_ context.Context, orgID, userID uuid.UUID) (*models.OrganizationMember, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	for _, m := range s.d.members {
		if m.OrganizationID == orgID && m.UserID == userID {
			found := s.hydrate(m)
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *memberStore) List(_ context.Context, orgID uuid.UUID) ([]models.OrganizationMember, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	var members []models.OrganizationMember
	for _, m := range s.d.members {
		if m.OrganizationID == orgID {
			members = append(members, s.hydrate(m))
		}
	}
	sort.Slice(members, func(i, j int) bool { return members[i].JoinedAt.Before(members[j].JoinedAt) })
	return members, nil
}

func (s *memberStore) Count(ctx context.Context, orgID uuid.UUID) (int64, error) {
	members, err := s.List(ctx, orgID)
	return int64(len(members)), err
}

func (s *memberStore) Add(_ context.Context, member *models.OrganizationMember) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	return s.d.addMemberLocked(member)
}

func (d *DB) addMemberLocked(member *models.OrganizationMember) error {
	for _, m := range d.members {
		if m.OrganizationID == member.OrganizationID && m.UserID == member.UserID {
			return store.ErrConflict
		}
	}
	ensureID(&member.ID)
	if member.JoinedAt.IsZero() {
		member.JoinedAt = time.Now().UTC()
	}
	stored := *member
	stored.Role = models.Role{}
	stored.User = models.User{}
	d.members[member.ID] = stored
	return nil
}

func (s *memberStore) UpdateRole(_ context.Context, orgID, userID, roleID uuid.UUID) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	for id, m := range s.d.members {
		if m.OrganizationID == orgID && m.UserID == userID {
			m.RoleID = roleID
			s.d.members[id] = m
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *memberStore) Remove(_ context.Context, orgID, userID uuid.UUID) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	for id, m := range s.d.members {
		if m.OrganizationID == orgID && m.UserID == userID {
			delete(s.d.members, id)
			return nil
		}
	}
	return store.ErrNotFound
}

// ---- invitations ----

type invitationStore struct{ d *DB }

func (d *DB) Invitations() store.InvitationStore { return &invitationStore{d} }

func (s *invitationStore) hydrate(inv models.OrganizationInvitation) models.OrganizationInvitation {
	inv.Organization = s.d.orgs[inv.OrganizationID]
	inv.Role = s.d.roles[inv.RoleID]
	return inv
}

func (s *invitationStore) Create(_ context.Context, inv *models.OrganizationInvitation) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	for _, existing := range s.d.invitations {
		if existing.TokenHash == inv.TokenHash {
			return store.ErrConflict
		}
	}
	ensureID(&inv.ID)
	if inv.Status == "" {
		inv.Status = models.InvitationPending
	}
	inv.CreatedAt = time.Now().UTC()
	s.d.invitations[inv.ID] = *inv
	return nil
}

func (s *invitationStore) GetByID(_ context.Context, id uuid.UUID) (*models.OrganizationInvitation, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	inv, ok := s.d.invitations[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &inv, nil
}

func (s *invitationStore) GetByTokenHash(_ context.Context, tokenHash string) (*models.OrganizationInvitation, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	for _, inv := range s.d.invitations {
		if inv.TokenHash == tokenHash {
			found := s.hydrate(inv)
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *invitationStore) ListByOrganization(_ context.Context, orgID uuid.UUID) ([]models.OrganizationInvitation, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	var invitations []models.OrganizationInvitation
	for _, inv := range s.d.invitations {
		if inv.OrganizationID == orgID {
			invitations = append(invitations, s.hydrate(inv))
		}
	}
	sort.Slice(invitations, func(i, j int) bool { return invitations[i].CreatedAt.After(invitations[j].CreatedAt) })
	return invitations, nil
}

func pendingAt(inv models.OrganizationInvitation, now time.Time) bool {
	return inv.Status == models.InvitationPending && !inv.ExpiresAt.Before(now)
}

func (s *invitationStore) FindPending(_ context.Context, orgID uuid.UUID, email string, now time.Time) (*models.OrganizationInvitation, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	for _, inv := range s.d.invitations {
		if inv.OrganizationID == orgID && strings.EqualFold(inv.Email, email) && pendingAt(inv, now) {
			found := inv
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *invitationStore) CountPending(_ context.Context, orgID uuid.UUID, now time.Time) (int64, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	var total int64
	for _, inv := range s.d.invitations {
		if inv.OrganizationID == orgID && pendingAt(inv, now) {
			total++
		}
	}
	return total, nil
}

func (s *invitationStore) UpdateStatus(_ context.Context, id uuid.UUID, status models.InvitationStatus, respondedAt *time.Time) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	inv, ok := s.d.invitations[id]
	if !ok || inv.Status != models.InvitationPending {
		return store.ErrNotFound
	}
	inv.Status = status
	inv.RespondedAt = respondedAt
	s.d.invitations[id] = inv
	return nil
}

func (s *invitationStore) Accept(_ context.Context, inv *models.OrganizationInvitation, member *models.OrganizationMember) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	stored, ok := s.d.invitations[inv.ID]
	if !ok || stored.Status != models.InvitationPending {
		return store.ErrNotFound
	}
	if err := s.d.addMemberLocked(member); err != nil {
		return err
	}
	stored.Status = models.InvitationAccepted
	stored.RespondedAt = inv.RespondedAt
	s.d.invitations[inv.ID] = stored
	return nil
}

func (s *invitationStore) ExpireStale(_ context.Context, now time.Time) (int64, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	var n int64
	for id, inv := range s.d.invitations {
		if inv.Status == models.InvitationPending && inv.ExpiresAt.Before(now) {
			inv.Status = models.InvitationExpired
			s.d.invitations[id] = inv
			n++
		}
	}
	return n, nil
}

// ---- subscriptions ----

type subscriptionStore struct{ d *DB }

func (d *DB) Subscriptions() store.SubscriptionStore { return &subscriptionStore{d} }

func (s *subscriptionStore) GetByUserID(_ context.Context, userID uuid.UUID) (*models.Subscription, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	for _, sub := range s.d.subscriptions {
		if sub.UserID == userID {
			found := sub
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *subscriptionStore) GetByCustomerID(_ context.Context, customerID string) (*models.Subscription, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	for _, sub := range s.d.subscriptions {
		if sub.StripeCustomerID == customerID {
			found := sub
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *subscriptionStore) Upsert(_ context.Context, sub *models.Subscription) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	now := time.Now().UTC()
	for id, existing := range s.d.subscriptions {
		if existing.UserID == sub.UserID {
			sub.ID = id
			sub.CreatedAt = existing.CreatedAt
			sub.UpdatedAt = now
			s.d.subscriptions[id] = *sub
			return nil
		}
	}
	ensureID(&sub.ID)
	sub.CreatedAt, sub.UpdatedAt = now, now
	s.d.subscriptions[sub.ID] = *sub
	return nil
}

// ---- surveys ----

type surveyStore struct{ d *DB }

func (d *DB) Surveys() store.SurveyStore { return &surveyStore{d} }

func (s *surveyStore) Create(_ context.Context, survey *models.Survey) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	for _, existing := range s.d.surveys {
		if existing.UniqueID == survey.UniqueID {
			return store.ErrConflict
		}
	}
	ensureID(&survey.ID)
	now := time.Now().UTC()
	survey.CreatedAt, survey.UpdatedAt = now, now
	s.d.surveys[survey.ID] = *survey
	return nil
}

func (s *surveyStore) GetByID(_ context.Context, id uuid.UUID) (*models.Survey, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	survey, ok := s.d.surveys[id]
	if !ok || survey.DeletedAt.Valid {
		return nil, store.ErrNotFound
	}
	return &survey, nil
}

func (s *surveyStore) GetByUniqueID(_ context.Context, uniqueID string) (*models.Survey, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	for _, survey := range s.d.surveys {
		if survey.UniqueID == uniqueID && !survey.DeletedAt.Valid {
			found := survey
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *surveyStore) ListByOrganization(_ context.Context, orgID uuid.UUID, params query.Params) ([]models.Survey, int64, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	var surveys []models.Survey
	for _, survey := range s.d.surveys {
		if survey.OrganizationID != orgID || survey.DeletedAt.Valid {
			continue
		}
		if status, ok := params.Filters["status"]; ok && string(survey.Status) != status {
			continue
		}
		if matches(params.Search, survey.Title, survey.Description) {
			surveys = append(surveys, survey)
		}
	}
	sort.Slice(surveys, func(i, j int) bool { return surveys[i].CreatedAt.After(surveys[j].CreatedAt) })
	return paginate(surveys, params), int64(len(surveys)), nil
}

func (s *surveyStore) CountByOrganization(_ context.Context, orgID uuid.UUID) (int64, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	var total int64
	for _, survey := range s.d.surveys {
		if survey.OrganizationID == orgID && !survey.DeletedAt.Valid {
			total++
		}
	}
	return total, nil
}

func (s *surveyStore) Update(_ context.Context, survey *models.Survey) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if _, ok := s.d.surveys[survey.ID]; !ok {
		return store.ErrNotFound
	}
	survey.UpdatedAt = time.Now().UTC()
	s.d.surveys[survey.ID] = *survey
	return nil
}

func (s *surveyStore) Delete(_ context.Context, id uuid.UUID) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	survey, ok := s.d.surveys[id]
	if !ok || survey.DeletedAt.Valid {
		return store.ErrNotFound
	}
	survey.DeletedAt.Time = time.Now().UTC()
	survey.DeletedAt.Valid = true
	s.d.surveys[id] = survey
	return nil
}

func (s *surveyStore) Count(_ context.Context) (int64, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	var total int64
	for _, survey := range s.d.surveys {
		if !survey.DeletedAt.Valid {
			total++
		}
	}
	return total, nil
}

// ---- blog posts ----

type blogPostStore struct{ d *DB }

func (d *DB) BlogPosts() store.BlogPostStore { return &blogPostStore{d} }

func (s *blogPostStore) Create(_ context.Context, post *models.BlogPost) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	for _, existing := range s.d.posts {
		if existing.Slug == post.Slug {
			return store.ErrConflict
		}
	}
	ensureID(&post.ID)
	now := time.Now().UTC()
	post.CreatedAt, post.UpdatedAt = now, now
	s.d.posts[post.ID] = *post
	return nil
}

func (s *blogPostStore) GetByID(_ context.Context, id uuid.UUID) (*models.BlogPost, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	post, ok := s.d.posts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	post.Author = s.d.users[post.AuthorID]
	return &post, nil
}

func (s *blogPostStore) GetPublishedBySlug(_ context.Context, slug string) (*models.BlogPost, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	for _, post := range s.d.posts {
		if post.Slug == slug && post.Status == models.PostPublished {
			found := post
			found.Author = s.d.users[post.AuthorID]
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *blogPostStore) list(params query.Params, keep func(models.BlogPost) bool) ([]models.BlogPost, int64, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	var posts []models.BlogPost
	for _, post := range s.d.posts {
		if keep(post) && matches(params.Search, post.Title, post.Excerpt) {
			post.Author = s.d.users[post.AuthorID]
			posts = append(posts, post)
		}
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].CreatedAt.After(posts[j].CreatedAt) })
	return paginate(posts, params), int64(len(posts)), nil
}

func (s *blogPostStore) ListPublished(_ context.Context, params query.Params) ([]models.BlogPost, int64, error) {
	return s.list(params, func(p models.BlogPost) bool { return p.Status == models.PostPublished })
}

func (s *blogPostStore) List(_ context.Context, params query.Params) ([]models.BlogPost, int64, error) {
	return s.list(params, func(p models.BlogPost) bool {
		status, ok := params.Filters["status"]
		return !ok || string(p.Status) == status
	})
}

func (s *blogPostStore) Update(_ context.Context, post *models.BlogPost) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if _, ok := s.d.posts[post.ID]; !ok {
		return store.ErrNotFound
	}
	for _, existing := range s.d.posts {
		if existing.ID != post.ID && existing.Slug == post.Slug {
			return store.ErrConflict
		}
	}
	post.UpdatedAt = time.Now().UTC()
	stored := *post
	stored.Author = models.User{}
	s.d.posts[post.ID] = stored
	return nil
}

func (s *blogPostStore) Delete(_ context.Context, id uuid.UUID) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if _, ok := s.d.posts[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.d.posts, id)
	return nil
}

// ---- impersonation ----

type impersonationStore struct{ d *DB }

func (d *DB) Impersonations() store.ImpersonationStore { return &impersonationStore{d} }

func (s *impersonationStore) Create(_ context.Context, session *models.ImpersonationSession) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	ensureID(&session.ID)
	s.d.impersonations[session.ID] = *session
	return nil
}

func (s *impersonationStore) GetActiveByAdmin(_ context.Context, adminID uuid.UUID, now time.Time) (*models.ImpersonationSession, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	for _, session := range s.d.impersonations {
		if session.AdminID == adminID && session.IsActive(now) {
			found := session
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *impersonationStore) End(_ context.Context, id uuid.UUID, at time.Time) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	session, ok := s.d.impersonations[id]
	if !ok || session.EndedAt != nil {
		return store.ErrNotFound
	}
	session.EndedAt = &at
	s.d.impersonations[id] = session
	return nil
}

func (s *impersonationStore) ListActive(_ context.Context, now time.Time) ([]models.ImpersonationSession, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	var sessions []models.ImpersonationSession
	for _, session := range s.d.impersonations {
		if session.IsActive(now) {
			session.Admin = s.d.users[session.AdminID]
			session.TargetUser = s.d.users[session.TargetUserID]
			sessions = append(sessions, session)
		}
	}
	return sessions, nil
}
