package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/shs-registrar-api/api/swagger"
	"github.com/noah-isme/shs-registrar-api/internal/handler"
	"github.com/noah-isme/shs-registrar-api/internal/middleware"
	"github.com/noah-isme/shs-registrar-api/internal/models"
	"github.com/noah-isme/shs-registrar-api/internal/service"
	"github.com/noah-isme/shs-registrar-api/pkg/config"
	"github.com/noah-isme/shs-registrar-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/shs-registrar-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/shs-registrar-api/pkg/middleware/requestid"
)

type routerDeps struct {
	auth        *service.AuthService
	metrics     *service.MetricsService
	students    *service.StudentService
	enrollments *service.EnrollmentService
	reEnroll    *service.ReEnrollmentService
	schoolYears *service.SchoolYearService
	transitions *service.TransitionService
	jobs        *service.TransitionJobService
	sections    *service.SectionService
	subjects    *service.SubjectService
	teachers    *service.TeacherService
	assignments *service.TeacherAssignmentService
	checks      map[string]handler.ReadinessCheck
}

func newRouter(cfg *config.Config, logr *zap.Logger, deps routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.metrics))

	metricsHandler := handler.NewMetricsHandler(deps.metrics, deps.checks)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	students := handler.NewStudentHandler(deps.students)
	enrollments := handler.NewEnrollmentHandler(deps.enrollments)
	reEnroll := handler.NewReEnrollmentHandler(deps.reEnroll)
	schoolYears := handler.NewSchoolYearHandler(deps.schoolYears, deps.transitions, deps.jobs)
	sections := handler.NewSectionHandler(deps.sections)
	subjects := handler.NewSubjectHandler(deps.subjects)
	teachers := handler.NewTeacherHandler(deps.teachers)
	assignments := handler.NewTeacherAssignmentHandler(deps.assignments)

	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleRegistrar)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	staffOrSelf := middleware.RBAC(string(models.RoleAdmin), string(models.RoleRegistrar), middleware.RoleSelf)
	audit := func(action, resource string) gin.HandlerFunc {
		return middleware.Audit(logr, action, resource)
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(deps.auth))

	api.GET("/metrics/system", adminOnly, metricsHandler.System)

	studentRoutes := api.Group("/students")
	studentRoutes.GET("", staff, students.List)
	studentRoutes.POST("", staff, audit("CREATE", "student"), students.Create)
	studentRoutes.GET("/re-enroll/eligible", staff, reEnroll.Eligible)
	studentRoutes.POST("/re-enroll", staff, audit("RE_ENROLL", "student"), reEnroll.ReEnroll)
	studentRoutes.POST("/re-enroll/batch", staff, audit("RE_ENROLL_BATCH", "student"), reEnroll.ReEnrollBatch)
	studentRoutes.GET("/:id", staff, students.Get)
	studentRoutes.PUT("/:id", staff, audit("UPDATE", "student"), students.Update)
	studentRoutes.PUT("/:id/enrollment", staff, audit("ENROLL", "student"), enrollments.Upsert)
	studentRoutes.POST("/:id/archive", staff, audit("ARCHIVE", "student"), students.Archive)
	studentRoutes.POST("/:id/restore", staff, audit("RESTORE", "student"), students.Restore)

	yearRoutes := api.Group("/school-years")
	yearRoutes.GET("", staff, schoolYears.List)
	yearRoutes.POST("", adminOnly, audit("CREATE", "school_year"), schoolYears.Create)
	yearRoutes.GET("/current", staff, schoolYears.Current)
	yearRoutes.GET("/transition/preview", adminOnly, schoolYears.Preview)
	yearRoutes.POST("/transition", adminOnly, audit("TRANSITION", "school_year"), schoolYears.Transition)
	yearRoutes.POST("/transition/jobs", adminOnly, audit("TRANSITION_ENQUEUE", "school_year"), schoolYears.EnqueueTransition)
	yearRoutes.GET("/transition/jobs/:id", adminOnly, schoolYears.TransitionJob)
	yearRoutes.GET("/:id", staff, schoolYears.Get)
	yearRoutes.PUT("/:id/current", adminOnly, audit("SET_CURRENT", "school_year"), schoolYears.SetCurrent)

	sectionRoutes := api.Group("/sections")
	sectionRoutes.GET("", staff, sections.List)
	sectionRoutes.POST("", staff, audit("CREATE", "section"), sections.Create)
	sectionRoutes.PATCH("/:id/active", staff, audit("SET_ACTIVE", "section"), sections.SetActive)

	subjectRoutes := api.Group("/subjects")
	subjectRoutes.GET("", staff, subjects.List)
	subjectRoutes.POST("", staff, audit("CREATE", "subject"), subjects.Create)
	subjectRoutes.PATCH("/:id/active", staff, audit("SET_ACTIVE", "subject"), subjects.SetActive)

	teacherRoutes := api.Group("/teachers")
	teacherRoutes.GET("", staff, teachers.List)
	teacherRoutes.POST("", staff, audit("CREATE", "teacher"), teachers.Create)
	teacherRoutes.GET("/:id", staffOrSelf, teachers.Get)
	teacherRoutes.GET("/:id/assignments", staffOrSelf, assignments.List)
	teacherRoutes.GET("/:id/assignments/subject-count", staffOrSelf, assignments.SubjectCount)
	teacherRoutes.POST("/:id/assignments", staff, audit("ASSIGN", "teacher_assignment"), assignments.Add)
	teacherRoutes.PUT("/:id/assignments", staff, audit("REPLACE", "teacher_assignment"), assignments.ReplaceAll)
	teacherRoutes.DELETE("/:id/assignments/:aid", staff, audit("UNASSIGN", "teacher_assignment"), assignments.Remove)

	return r
}
