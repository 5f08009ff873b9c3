package services

import (
	"context"
	"fmt"

	"github.com/retroshop/apiserver/config"
	"github.com/retroshop/apiserver/types"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var seedCategories = []types.Category{
	{Name: "Retro Consoles", Description: "Classic game consoles and their modern replicas"},
	{Name: "Accessories", Description: "Accessories for your consoles and gaming devices"},
	{Name: "Apparel", Description: "Clothing and accessories with classic game designs"},
	{Name: "Collectibles", Description: "Figures, posters and other collectible items"},
}

var seedProducts = []types.Product{
	{
		Name:        "Retro Gaming Console",
		Description: "A classic console with 500 preinstalled games",
		Price:       99.99,
		Stock:       15,
		ImageURL:    "/placeholder.svg?height=300&width=300",
		Featured:    true,
	},
	{
		Name:        "Vintage Controller",
		Description: "Authentic replica of the original controller",
		Price:       29.99,
		Stock:       25,
		ImageURL:    "/placeholder.svg?height=300&width=300",
		Featured:    false,
	},
	{
		Name:        "Pixel Art T-Shirt",
		Description: "100% cotton t-shirt with a classic game character design",
		Price:       24.99,
		Stock:       50,
		ImageURL:    "/placeholder.svg?height=300&width=300",
		Featured:    true,
	},
	{
		Name:        "Retro Game Poster",
		Description: "High quality print of classic game art",
		Price:       19.99,
		Stock:       30,
		ImageURL:    "/placeholder.svg?height=300&width=300",
		Featured:    false,
	},
	{
		Name:        "8-Bit Mug",
		Description: "Ceramic mug with a pixel art design",
		Price:       14.99,
		Stock:       40,
		ImageURL:    "/placeholder.svg?height=300&width=300",
		Featured:    true,
	},
	{
		Name:        "Arcade Cabinet Miniature",
		Description: "Fully functional miniature arcade cabinet",
		Price:       199.99,
		Stock:       10,
		ImageURL:    "/placeholder.svg?height=300&width=300",
		Featured:    true,
	},
}

// StepResult reports one step of the seeding run.
type StepResult struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// SeedReport aggregates the per-step results of a seeding run.
type SeedReport struct {
	Admin      StepResult `json:"admin"`
	Categories StepResult `json:"categories"`
	Products   StepResult `json:"products"`
}

// SeedService populates initial reference data if absent. Every step is
// idempotent: a second run leaves exactly one admin profile and one copy of
// each seed row.
type SeedService struct {
	users      UserRepository
	profiles   ProfileRepository
	categories CategoryRepository
	products   ProductRepository
	admin      config.AdminConfig
	log        *zap.Logger
}

func NewSeedService(
	users UserRepository,
	profiles ProfileRepository,
	categories CategoryRepository,
	products ProductRepository,
	admin config.AdminConfig,
	log *zap.Logger,
) *SeedService {
	if log == nil {
		log = zap.NewNop()
	}
	return &SeedService{
		users:      users,
		profiles:   profiles,
		categories: categories,
		products:   products,
		admin:      admin,
		log:        log,
	}
}

// EnsureProfiles idempotently creates the profiles table.
func (s *SeedService) EnsureProfiles(ctx context.Context) error {
	return s.profiles.EnsureTable(ctx)
}

// Run ensures the profiles table, then seeds the admin account, categories,
// and products. Step failures land in the report; only the table ensure is
// fatal.
func (s *SeedService) Run(ctx context.Context) (SeedReport, error) {
	var report SeedReport

	if err := s.profiles.EnsureTable(ctx); err != nil {
		return report, fmt.Errorf("ensure profiles table: %w", err)
	}

	report.Admin = s.seedAdmin(ctx)
	categories, categoriesResult := s.seedCategories(ctx)
	report.Categories = categoriesResult

	// Products are only seeded in the run that created the categories,
	// because they need the fresh category ids to attach to.
	if len(categories) == 0 {
		report.Products = StepResult{Message: "products skipped: no categories were seeded"}
		return report, nil
	}

	report.Products = s.seedProducts(ctx, categories)
	return report, nil
}

func (s *SeedService) seedAdmin(ctx context.Context) StepResult {
	count, err := s.profiles.CountByRole(ctx, types.RoleAdmin)
	if err != nil {
		return StepResult{Error: fmt.Sprintf("check existing admin: %v", err)}
	}
	if count > 0 {
		return StepResult{Message: "admin user already exists"}
	}

	if s.admin.Password == "" {
		return StepResult{Error: "admin password is not configured"}
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(s.admin.Password), bcrypt.DefaultCost)
	if err != nil {
		return StepResult{Error: fmt.Sprintf("hash admin password: %v", err)}
	}

	user, err := s.users.Create(ctx, types.User{
		Email:        s.admin.Email,
		PasswordHash: string(hashed),
	})
	if err != nil {
		return StepResult{Error: fmt.Sprintf("create admin user: %v", err)}
	}

	if _, err := s.profiles.Create(ctx, types.Profile{
		ID:       user.ID,
		FullName: "Administrator",
		Role:     types.RoleAdmin,
	}); err != nil {
		return StepResult{Error: fmt.Sprintf("create admin profile: %v", err)}
	}

	s.log.Info("admin user created", zap.String("email", s.admin.Email))
	return StepResult{Message: "admin user created"}
}

func (s *SeedService) seedCategories(ctx context.Context) ([]types.Category, StepResult) {
	count, err := s.categories.Count(ctx)
	if err != nil {
		return nil, StepResult{Error: fmt.Sprintf("check existing categories: %v", err)}
	}
	if count > 0 {
		return nil, StepResult{Message: "categories already exist"}
	}

	created := make([]types.Category, 0, len(seedCategories))
	for _, category := range seedCategories {
		stored, err := s.categories.Create(ctx, category)
		if err != nil {
			return nil, StepResult{Error: fmt.Sprintf("seed categories: %v", err)}
		}
		created = append(created, stored)
	}

	return created, StepResult{Message: "categories seeded"}
}

func (s *SeedService) seedProducts(ctx context.Context, categories []types.Category) StepResult {
	count, err := s.products.Count(ctx)
	if err != nil {
		return StepResult{Error: fmt.Sprintf("check existing products: %v", err)}
	}
	if count > 0 {
		return StepResult{Message: "products already exist"}
	}
	if len(categories) == 0 {
		return StepResult{Error: "no categories to attach products to"}
	}

	for i, product := range seedProducts {
		product.CategoryID = categories[i%len(categories)].ID
		if _, err := s.products.Create(ctx, product); err != nil {
			return StepResult{Error: fmt.Sprintf("seed products: %v", err)}
		}
	}

	return StepResult{Message: "products seeded"}
}

// HasError reports whether any step of the run failed.
func (r SeedReport) HasError() bool {
	return r.Admin.Error != "" || r.Categories.Error != "" || r.Products.Error != ""
}
