package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/yourusername/assessment-api/internal/config"
	"github.com/yourusername/assessment-api/internal/handler"
	"github.com/yourusername/assessment-api/internal/middleware"
	pgRepo "github.com/yourusername/assessment-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/assessment-api/internal/repository/redis"
	"github.com/yourusername/assessment-api/internal/service"
	"github.com/yourusername/assessment-api/internal/service/aijudge"
	"github.com/yourusername/assessment-api/internal/service/codeexec"
	"github.com/yourusername/assessment-api/internal/service/evaluator"
	"github.com/yourusername/assessment-api/pkg/database"
)

func main() {
	// Загружаем конфигурацию
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Загрузка конфигурации из %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к PostgreSQL
	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	// Применяем миграции
	if err := database.MigrateDB(db); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к Redis с использованием унифицированной конфигурации
	redisClient, err := database.NewUniversalRedisClient(cfg.Redis)
	if err != nil {
		log.Printf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	log.Println("Successfully connected to Redis")

	// Инициализируем репозитории
	activityRepo := pgRepo.NewActivityRepo(db)
	questionRepo := pgRepo.NewQuestionRepo(db)
	submissionRepo := pgRepo.NewSubmissionRepo(db)

	cacheRepo, err := redisRepo.NewCacheRepo(redisClient)
	if err != nil {
		log.Printf("Failed to initialize CacheRepo: %v", err)
		os.Exit(1)
	}

	// Инициализируем клиенты внешних сервисов
	execClient := codeexec.NewClient(cfg.Executor.BaseURL, cfg.Executor.ExecutorTimeout())
	verifier := codeexec.NewVerifier(execClient)

	var judge aijudge.Judge
	if cfg.Judge.BaseURL != "" {
		judge = aijudge.NewClient(cfg.Judge.BaseURL, cfg.Judge.APIKey, cfg.Judge.Model, cfg.Judge.JudgeTimeout())
		log.Printf("AI-судья включен: %s (модель %s)", cfg.Judge.BaseURL, cfg.Judge.Model)
	} else {
		// Без судьи вопросы с evaluation_mode=ai остаются на ручной проверке
		judge = aijudge.Disabled{}
		log.Println("AI-судья не сконфигурирован, ai-вопросы будут ожидать ручной проверки")
	}

	// Инициализируем сервисы
	registry := evaluator.NewRegistry()
	activityService := service.NewActivityService(activityRepo, questionRepo, cacheRepo)
	submissionService := service.NewSubmissionService(
		submissionRepo, activityRepo, questionRepo, cacheRepo, registry, judge, verifier,
	)

	// Инициализируем обработчики
	activityHandler := handler.NewActivityHandler(activityService, submissionService)
	submissionHandler := handler.NewSubmissionHandler(submissionService, activityService)

	// Инициализируем rate limiter для студенческих endpoints
	rateLimiter := middleware.NewRateLimiter(redisClient)

	isProduction := gin.Mode() == gin.ReleaseMode

	// Инициализируем роутер Gin
	router := gin.Default()

	// Настройка доверенных прокси для корректной работы c.ClientIP()
	if isProduction {
		// Production: не доверять прокси-заголовкам
		if err := router.SetTrustedProxies(nil); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	} else {
		// Development: доверяем localhost
		if err := router.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	}

	// Настройка CORS
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173", "http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Student-ID", "X-Teacher-ID"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Настраиваем маршруты API
	api := router.Group("/api")
	{
		// Преподавательские маршруты: авторинг и результаты
		teacher := api.Group("/teacher")
		teacher.Use(middleware.RequireTeacher())
		{
			activities := teacher.Group("/activities")
			{
				activities.POST("", activityHandler.CreateActivity)
				activities.GET("", activityHandler.ListActivities)

				activityWithID := activities.Group("/:id")
				activityWithID.Use(middleware.ExtractUintParam("id", "activityID"))
				{
					activityWithID.GET("", activityHandler.GetActivity)
					activityWithID.POST("/sections", activityHandler.AddSection)
					activityWithID.PUT("/publish", activityHandler.PublishActivity)
					activityWithID.GET("/submissions", activityHandler.ListSubmissions)
					activityWithID.GET("/results/export", activityHandler.ExportResults)
				}
			}

			sections := teacher.Group("/sections/:id")
			sections.Use(middleware.ExtractUintParam("id", "sectionID"))
			{
				// Пакетный импорт вопросов раздела
				sections.POST("/questions", activityHandler.AddQuestions)
			}

			questions := teacher.Group("/questions")
			{
				questions.POST("", activityHandler.AddQuestion)

				questionWithID := questions.Group("/:id")
				questionWithID.Use(middleware.ExtractUintParam("id", "questionID"))
				{
					questionWithID.PUT("", activityHandler.UpdateQuestion)
					questionWithID.DELETE("", activityHandler.DeleteQuestion)
				}
			}

			teacherSubmissions := teacher.Group("/submissions/:id")
			teacherSubmissions.Use(middleware.ExtractUintParam("id", "submissionID"))
			{
				teacherSubmissions.GET("", activityHandler.GetSubmissionReview)
				teacherSubmissions.POST("/finalize", activityHandler.FinalizeEvaluation)
			}
		}

		// Студенческие маршруты: прохождение активности
		student := api.Group("")
		student.Use(middleware.RequireStudent())
		student.Use(rateLimiter.Limit(middleware.DefaultAPIRateLimitConfig()))
		{
			studentActivities := student.Group("/activities/:id")
			studentActivities.Use(middleware.ExtractUintParam("id", "activityID"))
			{
				studentActivities.GET("", submissionHandler.GetActivity)
				studentActivities.POST("/attempt", submissionHandler.StartAttempt)
			}

			submissions := student.Group("/submissions/:id")
			submissions.Use(middleware.ExtractUintParam("id", "submissionID"))
			{
				submissions.POST("/submit", submissionHandler.Submit)
				submissions.GET("/result", submissionHandler.GetResult)

				// Запуск кода лимитируется жестче: каждый запуск занимает
				// воркер сервиса исполнения
				submissions.POST("/run",
					rateLimiter.Limit(middleware.DefaultRunRateLimitConfig()),
					submissionHandler.RunCode,
				)
			}
		}
	}

	// Настраиваем HTTP сервер с тайм-аутами для защиты от slow client attacks
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Запускаем сервер в горутине
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
		}
	}()

	log.Printf("Server started on port %s", cfg.Server.Port)

	// Ожидаем сигнал остановки
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Создаем контекст с таймаутом для graceful shutdown сервера
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		os.Exit(1)
	}

	if err := redisClient.Close(); err != nil {
		log.Printf("Error closing Redis client: %v", err)
	}

	log.Println("Server exited properly")
}
