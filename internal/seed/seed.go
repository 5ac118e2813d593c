package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/communitylink/communitylink/internal/app/auth"
	appModels "github.com/communitylink/communitylink/internal/app/models"
	"github.com/communitylink/communitylink/internal/app/models/dto"
	appRepos "github.com/communitylink/communitylink/internal/app/repositories"
	appServices "github.com/communitylink/communitylink/internal/app/services"
	"github.com/communitylink/communitylink/internal/pkg/apperrors"
	pkgAuth "github.com/communitylink/communitylink/internal/pkg/auth"
)

// DemoPassword is the password of every seeded account
const DemoPassword = "communitylink"

type demoUser struct {
	username  string
	firstName string
	lastName  string
	role      appModels.RoleType
	admin     bool
}

var demoUsers = []demoUser{
	{username: "admin", firstName: "Site", lastName: "Admin", role: appModels.RoleOrganizer, admin: true},
	{username: "org.porto", firstName: "Marta", lastName: "Costa", role: appModels.RoleOrganizer},
	{username: "org.braga", firstName: "Rui", lastName: "Pereira", role: appModels.RoleOrganizer},
	{username: "ana", firstName: "Ana", lastName: "Silva", role: appModels.RoleVolunteer},
	{username: "joao", firstName: "João", lastName: "Santos", role: appModels.RoleVolunteer},
	{username: "ines", firstName: "Inês", lastName: "Ferreira", role: appModels.RoleVolunteer},
}

type demoAction struct {
	owner    string
	title    string
	location string
	category appModels.Category
	capacity int
	inDays   int
}

var demoActions = []demoAction{
	{owner: "org.porto", title: "Beach clean-up", location: "Matosinhos", category: appModels.CategoryEnvironment, capacity: 10, inDays: 7},
	{owner: "org.porto", title: "Soup kitchen evening", location: "Porto", category: appModels.CategoryOther, capacity: 4, inDays: 3},
	{owner: "org.porto", title: "Reading with children", location: "Gaia", category: appModels.CategoryEducation, capacity: 3, inDays: 14},
	{owner: "org.braga", title: "Animal shelter walk", location: "Braga", category: appModels.CategoryAnimals, capacity: 6, inDays: 5},
	{owner: "org.braga", title: "Blood donation drive", location: "Braga", category: appModels.CategoryHealth, capacity: 20, inDays: 21},
}

// CreateDemoData creates demo accounts and upcoming actions. Existing accounts are kept
// and organizers that already have actions get no new ones, so it is safe to run twice.
func CreateDemoData(ctx context.Context, store appRepos.Store, actions appServices.ActionService, lgr zerolog.Logger) error {
	lgr.Info().Msg("Checking/Creating demo data (users/actions)...")
	var finalErr error

	users := make(map[string]*appModels.User, len(demoUsers))
	for _, du := range demoUsers {
		u, err := ensureUser(ctx, store, du)
		if err != nil {
			lgr.Error().Err(err).Str("username", du.username).Msg("Error creating demo user")
			finalErr = errors.Join(finalErr, err)
			continue
		}
		users[du.username] = u
	}

	// organizers that already had actions are skipped
	skip := map[string]bool{}
	for _, da := range demoActions {
		owner, ok := users[da.owner]
		if !ok {
			continue
		}
		actor := auth.NewActor(owner)
		if _, done := skip[da.owner]; !done {
			mine, err := actions.ListMine(ctx, actor, dto.ListFilter{}, 1, 1)
			if err != nil {
				finalErr = errors.Join(finalErr, err)
				continue
			}
			skip[da.owner] = mine.Pagination.TotalItems > 0
		}
		if skip[da.owner] {
			continue
		}

		_, err := actions.Create(ctx, actor, &dto.ActionRequest{
			Title:       da.title,
			Description: fmt.Sprintf("%s in %s. Comfortable clothes recommended.", da.title, da.location),
			ScheduledAt: time.Now().Add(time.Duration(da.inDays) * 24 * time.Hour).Truncate(time.Hour),
			Location:    da.location,
			Capacity:    da.capacity,
			Category:    da.category,
		})
		if err != nil {
			lgr.Error().Err(err).Str("title", da.title).Msg("Error creating demo action")
			finalErr = errors.Join(finalErr, err)
			continue
		}
		lgr.Debug().Str("title", da.title).Str("owner", da.owner).Msg("Demo action created")
	}

	if finalErr == nil {
		lgr.Info().Int("users", len(users)).Msg("Demo data is in place")
	}
	return finalErr
}

func ensureUser(ctx context.Context, store appRepos.Store, du demoUser) (*appModels.User, error) {
	existing, err := store.Users().GetByUsername(ctx, du.username)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, apperrors.ErrUserNotFound) {
		return nil, err
	}

	hashed, err := pkgAuth.HashPassword(DemoPassword)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}
	u := &appModels.User{
		Username:    du.username,
		Email:       du.username + "@communitylink.local",
		Password:    hashed,
		FirstName:   du.firstName,
		LastName:    du.lastName,
		RoleType:    du.role,
		IsActive:    true,
		IsSuperuser: du.admin,
	}
	err = store.InTx(ctx, func(ctx context.Context, tx appRepos.Store) error {
		if err := tx.Users().Create(ctx, u); err != nil {
			return err
		}
		return appServices.CreateProfileHook(ctx, tx, u)
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}
