package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/showyourproject/backend/internal/config"
	"github.com/showyourproject/backend/internal/featured"
	featureddomain "github.com/showyourproject/backend/internal/featured/domain"
	"github.com/showyourproject/backend/internal/metrics"
	"github.com/showyourproject/backend/internal/points"
	pointsdomain "github.com/showyourproject/backend/internal/points/domain"
	"github.com/showyourproject/backend/internal/project"
	projectdomain "github.com/showyourproject/backend/internal/project/domain"
	"github.com/showyourproject/backend/internal/ratelimit"
	"github.com/showyourproject/backend/internal/socialshare"
	socialdomain "github.com/showyourproject/backend/internal/socialshare/domain"
	"github.com/showyourproject/backend/internal/user"
	userdomain "github.com/showyourproject/backend/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	metrics.Module,
	fx.Provide(registerGin),
	ratelimit.Module,
	user.Module,
	points.Module,
	project.Module,
	featured.Module,
	socialshare.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(log *zap.Logger) *gin.Engine {
	return NewEngine(log)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	log         *zap.Logger
	db          *gorm.DB
	genID       *snowflake.Node
	userSvc     userdomain.Service
	pointsSvc   pointsdomain.Service
	projectSvc  projectdomain.Service
	featuredSvc featureddomain.Service
	socialSvc   socialdomain.Service
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	Log         *zap.Logger
	DB          *gorm.DB
	GenID       *snowflake.Node
	UserSvc     userdomain.Service
	PointsSvc   pointsdomain.Service
	ProjectSvc  projectdomain.Service
	FeaturedSvc featureddomain.Service
	SocialSvc   socialdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		log:         p.Log.Named("server"),
		db:          p.DB,
		genID:       p.GenID,
		userSvc:     p.UserSvc,
		pointsSvc:   p.PointsSvc,
		projectSvc:  p.ProjectSvc,
		featuredSvc: p.FeaturedSvc,
		socialSvc:   p.SocialSvc,
	}

	svc.registerUserRoutes()
	svc.registerPointsRoutes()
	svc.registerProjectRoutes()
	svc.registerFeaturedRoutes()
	svc.registerAdminRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerUserRoutes() {
	users := s.engine.Group("/v1/users")

	users.POST("", s.RegisterUser)
	users.GET("", s.ListUsers)
	users.GET("/:id", s.GetUserByID)
	users.POST("/:id/bonus", s.AdminRequired(), s.GrantBonus)
}

func (s *Server) registerPointsRoutes() {
	points := s.engine.Group("/v1/points")

	points.GET("/:user_id/balance", s.GetBalance)
	points.GET("/:user_id/history", s.GetHistory)
}

func (s *Server) registerProjectRoutes() {
	projects := s.engine.Group("/v1/projects")

	projects.POST("", s.SubmitProject)
	projects.GET("", s.ListProjects)
	projects.GET("/:id", s.GetProjectByID)
	projects.GET("/slug/:slug", s.GetProjectBySlug)
	projects.POST("/:id/vote", s.VoteProject)
	projects.POST("/:id/click", s.RecordProjectClick)

	projects.POST("/:id/approve", s.AdminRequired(), s.ApproveProject)
	projects.POST("/:id/reject", s.AdminRequired(), s.RejectProject)
	projects.POST("/:id/share", s.AdminRequired(), s.ShareProject)
}

func (s *Server) registerFeaturedRoutes() {
	featured := s.engine.Group("/v1/featured")

	featured.GET("", s.ListFeaturedSlots)
	featured.POST("", s.PurchaseFeaturedSlot)
	featured.GET("/settings", s.GetFeaturedSettings)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/v1/admin", s.AdminRequired())

	admin.POST("/featured/expire", s.ExpireFeaturedSlots)
	admin.PATCH("/featured/settings", s.UpdateFeaturedSettings)

	admin.GET("/social/platforms", s.ListSocialPlatforms)
	admin.PATCH("/social/platforms/:id", s.SetSocialPlatformEnabled)
	admin.GET("/social/posts", s.ListSocialPosts)
}
