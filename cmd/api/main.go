package main

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"go-admin-rbac/internal/audit"
	"go-admin-rbac/internal/handler"
	"go-admin-rbac/internal/middleware"
	"go-admin-rbac/internal/model"
	"go-admin-rbac/internal/repository"
	"go-admin-rbac/internal/service"
	"go-admin-rbac/internal/ws"
	"go-admin-rbac/pkg/config"
	"go-admin-rbac/pkg/database"
	"go-admin-rbac/pkg/jwt"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func main() {
	// 1. Config and logging
	cfg := config.Load()
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	// 2. Database
	db := database.ConnectDB(cfg)
	if err := db.AutoMigrate(
		&model.Module{},
		&model.Option{},
		&model.Role{},
		&model.RolePermission{},
		&model.User{},
		&model.UserRole{},
		&model.AuditLog{},
	); err != nil {
		log.WithError(err).Fatal("auto migration failed")
	}

	// 3. WebSocket hub for the live audit feed
	wsHub := ws.NewHub(log)
	go wsHub.Run()

	// 4. Audit emitter (fire-and-forget writes, broadcast to the hub)
	emitter := audit.NewEmitter(db, log, wsHub)

	// 5. Dependency Injection (Wiring Layers)
	moduleRepo := repository.NewModuleRepo(db)
	optionRepo := repository.NewOptionRepo(db)
	roleRepo := repository.NewRoleRepo(db)
	permRepo := repository.NewPermissionRepo(db)
	userRepo := repository.NewUserRepo(db)
	auditRepo := repository.NewAuditRepo(db)

	tokens := jwt.NewManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTExpiryHours)

	moduleService := service.NewModuleService(db, moduleRepo, emitter, log)
	optionService := service.NewOptionService(db, optionRepo, emitter, log)
	roleService := service.NewRoleService(db, roleRepo, emitter, log)
	permService := service.NewPermissionService(db, permRepo, roleRepo, moduleRepo, optionRepo, emitter, log)
	userService := service.NewUserService(db, userRepo, emitter, log)
	authService := service.NewAuthService(userRepo, tokens)
	overviewService := service.NewOverviewService(db, auditRepo, log)

	moduleHandler := handler.NewModuleHandler(moduleService, optionService)
	optionHandler := handler.NewOptionHandler(optionService)
	roleHandler := handler.NewRoleHandler(roleService, permService)
	userHandler := handler.NewUserHandler(userService)
	auditHandler := handler.NewAuditHandler(auditRepo)
	authHandler := handler.NewAuthHandler(authService)
	overviewHandler := handler.NewOverviewHandler(overviewService)

	// 6. Seed the admin role, admin user and the administration module tree
	seedDefaults(db, cfg, log)

	// 7. Fiber
	app := fiber.New(fiber.Config{
		AppName: "Admin RBAC v1.0",
	})
	app.Use(logger.New())
	app.Use(recover.New())
	app.Use(cors.New())

	api := app.Group("/api/v1")

	// ============ PUBLIC ROUTES ============
	auth := api.Group("/auth")
	auth.Post("/login", authHandler.Login)
	auth.Post("/validate-token", authHandler.ValidateToken)

	// ============ PROTECTED ROUTES ============
	protected := api.Group("", middleware.RequireAuth(tokens, userRepo))

	protected.Get("/overview", overviewHandler.GetOverview)

	// Module catalog
	protected.Get("/modules", moduleHandler.GetModules)
	protected.Get("/modules/key/:key", moduleHandler.GetModuleByKey)
	protected.Get("/modules/:id", moduleHandler.GetModule)
	protected.Get("/modules/:id/children", moduleHandler.GetModuleChildren)
	protected.Get("/modules/:id/subtree", moduleHandler.GetModuleSubtree)
	protected.Get("/modules/:id/options", moduleHandler.GetModuleOptions)
	protected.Post("/modules", middleware.RequirePermission(permService, "system.modules", "system.modules.create"), moduleHandler.CreateModule)
	protected.Put("/modules/:id", middleware.RequirePermission(permService, "system.modules", "system.modules.update"), moduleHandler.UpdateModule)
	protected.Delete("/modules/:id", middleware.RequirePermission(permService, "system.modules", "system.modules.delete"), moduleHandler.DeleteModule)

	// Options
	protected.Get("/options", optionHandler.GetOptions)
	protected.Get("/options/:id", optionHandler.GetOption)
	protected.Post("/options", middleware.RequirePermission(permService, "system.modules", "system.modules.update"), optionHandler.CreateOption)
	protected.Put("/options/:id", middleware.RequirePermission(permService, "system.modules", "system.modules.update"), optionHandler.UpdateOption)
	protected.Delete("/options/:id", middleware.RequirePermission(permService, "system.modules", "system.modules.update"), optionHandler.DeleteOption)

	// Roles and grants
	protected.Get("/roles", roleHandler.GetRoles)
	protected.Get("/roles/:id", roleHandler.GetRole)
	protected.Post("/roles", middleware.RequirePermission(permService, "system.roles", "system.roles.create"), roleHandler.CreateRole)
	protected.Put("/roles/:id", middleware.RequirePermission(permService, "system.roles", "system.roles.update"), roleHandler.UpdateRole)
	protected.Delete("/roles/:id", middleware.RequirePermission(permService, "system.roles", "system.roles.delete"), roleHandler.DeleteRole)
	protected.Get("/roles/:id/permissions", roleHandler.GetRolePermissions)
	protected.Post("/roles/:id/permissions", middleware.RequirePermission(permService, "system.roles", "system.roles.grant"), roleHandler.GrantPermission)
	protected.Delete("/roles/:id/permissions", middleware.RequirePermission(permService, "system.roles", "system.roles.grant"), roleHandler.RevokePermission)
	protected.Get("/permissions/resolve", roleHandler.ResolvePermission)

	// Users
	protected.Get("/users", userHandler.GetUsers)
	protected.Get("/users/:id", userHandler.GetUser)
	protected.Post("/users", middleware.RequirePermission(permService, "system.users", "system.users.create"), userHandler.CreateUser)
	protected.Put("/users/:id", middleware.RequirePermission(permService, "system.users", "system.users.update"), userHandler.UpdateUser)
	protected.Put("/users/:id/roles", middleware.RequirePermission(permService, "system.users", "system.users.assign_roles"), userHandler.AssignRoles)
	protected.Delete("/users/:id", middleware.RequirePermission(permService, "system.users", "system.users.delete"), userHandler.DeactivateUser)
	protected.Delete("/users/:id/hard", middleware.RequirePermission(permService, "system.users", "system.users.delete"), userHandler.HardDeleteUser)

	// Audit trail (read-only)
	protected.Get("/audit-logs", middleware.RequirePermission(permService, "system.audit", ""), auditHandler.GetAuditLogs)
	protected.Get("/audit-logs/:id", middleware.RequirePermission(permService, "system.audit", ""), auditHandler.GetAuditLog)

	// Live audit feed
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws/audit", websocket.New(func(c *websocket.Conn) {
		wsHub.Register <- c
		defer func() { wsHub.Unregister <- c }()

		for {
			// Keep alive loop
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	}))

	// 8. Graceful Shutdown
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.WithError(err).Fatal("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	if err := app.Shutdown(); err != nil {
		log.WithError(err).Error("forced shutdown")
	}
	// Let in-flight audit writes land before the process exits.
	emitter.Flush()
	log.Info("server exited")
}

// seedDefaults creates the ADMIN role, the default admin user and the
// administration module tree if they don't exist. The ADMIN role gets an
// inheriting grant on the tree root, which resolves to everything below it.
func seedDefaults(db *gorm.DB, cfg *config.Config, log *logrus.Logger) {
	var root model.Module
	err := db.Where("key = ?", "system").First(&root).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		root = model.Module{Key: "system", Name: "System Administration", Route: "/system"}
		if err := db.Create(&root).Error; err != nil {
			log.WithError(err).Warn("failed to seed root module")
			return
		}

		children := []struct {
			key, name, route string
			options          []string
		}{
			{"system.users", "User Management", "/system/users", []string{"create", "update", "delete", "assign_roles"}},
			{"system.roles", "Role Management", "/system/roles", []string{"create", "update", "delete", "grant"}},
			{"system.modules", "Module Catalog", "/system/modules", []string{"create", "update", "delete"}},
			{"system.audit", "Audit Trail", "/system/audit", nil},
		}
		for i, child := range children {
			module := model.Module{
				Key:            child.key,
				Name:           child.name,
				ParentModuleID: &root.ID,
				OrderIndex:     i,
				Route:          child.route,
			}
			if err := db.Create(&module).Error; err != nil {
				log.WithError(err).WithField("key", child.key).Warn("failed to seed module")
				continue
			}
			for _, suffix := range child.options {
				option := model.Option{
					ModuleID: module.ID,
					Key:      child.key + "." + suffix,
					Name:     child.name + ": " + suffix,
				}
				if err := db.Create(&option).Error; err != nil {
					log.WithError(err).WithField("key", option.Key).Warn("failed to seed option")
				}
			}
		}
		log.Info("seeded administration module tree")
	} else if err != nil {
		log.WithError(err).Warn("failed to check root module")
		return
	}

	var adminRole model.Role
	err = db.Where("name = ?", model.RoleAdmin).First(&adminRole).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		adminRole = model.Role{Name: model.RoleAdmin, Description: "Full administrative access"}
		if err := db.Create(&adminRole).Error; err != nil {
			log.WithError(err).Warn("failed to seed admin role")
			return
		}

		grant := model.RolePermission{
			RoleID:        adminRole.ID,
			ModuleID:      root.ID,
			AllowChildren: true,
			Granted:       true,
		}
		if err := db.Create(&grant).Error; err != nil {
			log.WithError(err).Warn("failed to seed admin grant")
		}
		log.Info("seeded ADMIN role")
	} else if err != nil {
		log.WithError(err).Warn("failed to check admin role")
		return
	}

	var admin model.User
	err = db.Where("email = ?", cfg.SeedAdminEmail).First(&admin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		admin = model.User{
			Username:  "admin",
			Email:     cfg.SeedAdminEmail,
			FirstName: "System",
			LastName:  "Administrator",
			IsActive:  true,
		}
		if err := admin.SetPassword(cfg.SeedAdminPassword); err != nil {
			log.WithError(err).Warn("failed to hash admin password")
			return
		}
		if err := db.Create(&admin).Error; err != nil {
			log.WithError(err).Warn("failed to seed admin user")
			return
		}
		assignment := model.UserRole{UserID: admin.ID, RoleID: adminRole.ID}
		if err := db.Create(&assignment).Error; err != nil {
			log.WithError(err).Warn("failed to assign admin role")
		}
		log.WithField("email", cfg.SeedAdminEmail).Info("seeded admin user")
	} else if err != nil {
		log.WithError(err).Warn("failed to check admin user")
	}
}
