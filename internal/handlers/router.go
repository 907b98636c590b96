package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/placement-portal/daily-quiz-service/internal/models"
	"github.com/placement-portal/daily-quiz-service/internal/services"
	"github.com/placement-portal/daily-quiz-service/internal/utils"
)

type HandlerManager struct {
	quizHandler    *QuizHandler
	topicHandler   *TopicHandler
	studentHandler *StudentHandler
	authHandler    *AuthHandler
	authMiddleware *JWTAuthMiddleware
	serviceManager services.ServiceManager
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	logger utils.Logger,
	jwtSecret []byte,
) *HandlerManager {
	return &HandlerManager{
		quizHandler:    NewQuizHandler(serviceManager.Quiz(), serviceManager.Scoring(), logger),
		topicHandler:   NewTopicHandler(serviceManager.Topic(), logger),
		studentHandler: NewStudentHandler(serviceManager.Student(), logger),
		authHandler:    NewAuthHandler(serviceManager.Auth(), logger),
		authMiddleware: NewJWTAuthMiddleware(jwtSecret, logger),
		serviceManager: serviceManager,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", hm.healthCheck)

	v1 := router.Group("/api/v1")

	// Auth routes are the only unauthenticated surface
	auth := v1.Group("/auth")
	{
		auth.POST("/signup/otp", hm.authHandler.RequestSignupOTP)
		auth.POST("/signup", hm.authHandler.Signup)
		auth.POST("/login", hm.authHandler.Login)
		auth.POST("/password/otp", hm.authHandler.RequestPasswordReset)
		auth.POST("/password/reset", hm.authHandler.ResetPassword)
	}

	authed := v1.Group("")
	authed.Use(hm.authMiddleware.AuthMiddleware())
	{
		quiz := authed.Group("/quiz")
		{
			quiz.POST("/:track/begin", hm.quizHandler.BeginDaily)
			quiz.GET("/:track/status", hm.quizHandler.GetStatus)
			quiz.POST("/:track/submit", hm.quizHandler.Submit)
			quiz.GET("/:track/review", hm.quizHandler.GetReview)
		}

		students := authed.Group("/students")
		{
			students.GET("/me", hm.studentHandler.Profile)
			students.PUT("/me/photo", hm.studentHandler.UpdatePhoto)
			students.GET("/me/today", hm.studentHandler.TodayResult)
			students.GET("/me/marks", hm.studentHandler.MarksHistory)
			students.GET("/leaderboard", hm.studentHandler.Leaderboard)
		}

		topics := authed.Group("/topics")
		{
			// Reads are open to all authenticated users
			topics.GET("", hm.topicHandler.ListTopics)
			topics.GET("/:track/:date", hm.topicHandler.GetTopic)

			// Writes are admin only
			topics.PUT("", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin), hm.topicHandler.UpsertTopic)
			topics.DELETE("/:track/:date", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin), hm.topicHandler.DeleteTopic)
			topics.POST("/import", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin), hm.topicHandler.ImportTopics)
		}
	}
}

func (hm *HandlerManager) healthCheck(c *gin.Context) {
	if err := hm.serviceManager.HealthCheck(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":    "unhealthy",
			"error":     err.Error(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "daily-quiz-service",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
