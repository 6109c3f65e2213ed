package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sibuparking/coupons/internal/auth"
	"github.com/sibuparking/coupons/pkg/coupon"
	"go.uber.org/zap"
)

// Run boots the HTTP API and blocks until ctx is cancelled or serving fails.
func Run(ctx context.Context, cfg Config, service *coupon.Service, sessions *auth.Manager, logger *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	router := NewRouter(cfg, service, sessions, logger)

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("coupon api listening", zap.String("addr", cfg.ListenAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Warn("server shutdown error", zap.Error(shutdownErr))
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// NewRouter wires the gin engine, middleware, and routes.
func NewRouter(cfg Config, service *coupon.Service, sessions *auth.Manager, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Origin", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handler := &httpHandler{logger: logger, service: service}

	api := router.Group("/api")
	api.Use(sessions.GinMiddleware())

	api.GET("/coupons", handler.handleActiveCoupons)
	api.POST("/purchases", handler.handlePurchase)
	api.GET("/purchases", handler.handlePurchaseHistory)
	api.POST("/redemptions", handler.handleRedeem)
	api.GET("/vehicles/:plate", handler.handleVehicleLookup)
	api.GET("/history", handler.handleParkingHistory)

	api.POST("/reports", handler.handleCreateReport)
	api.GET("/reports", handler.handleListReports)
	api.PATCH("/reports/:id", handler.handleUpdateReportStatus)

	api.POST("/favorites/vehicles", handler.handleAddVehicle)
	api.GET("/favorites/vehicles", handler.handleListVehicles)
	api.DELETE("/favorites/vehicles/:id", handler.handleRemoveVehicle)
	api.POST("/favorites/areas", handler.handleAddParkingArea)
	api.GET("/favorites/areas", handler.handleListParkingAreas)
	api.DELETE("/favorites/areas/:id", handler.handleRemoveParkingArea)

	return router
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		started := time.Now()
		ctx.Next()
		logger.Info("http request",
			zap.String("method", ctx.Request.Method),
			zap.String("path", ctx.Request.URL.Path),
			zap.Int("status", ctx.Writer.Status()),
			zap.Duration("duration", time.Since(started)),
		)
	}
}

type httpHandler struct {
	logger  *zap.Logger
	service *coupon.Service
}

func (handler *httpHandler) handleActiveCoupons(ctx *gin.Context) {
	coupons, err := handler.service.ActiveCoupons(ctx.Request.Context())
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"coupons": couponViews(coupons)})
}

func (handler *httpHandler) handlePurchase(ctx *gin.Context) {
	var request purchaseRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	if len(request.Items) == 0 {
		ctx.JSON(http.StatusBadRequest, errorResponse("empty_cart", "at least one cart item is required"))
		return
	}
	method, err := coupon.ParsePaymentMethod(request.PaymentMethod)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	cart := coupon.NewCart()
	for _, item := range request.Items {
		tier, err := coupon.ParseTier(item.Type)
		if err != nil {
			handler.respondError(ctx, err)
			return
		}
		if item.Quantity < 1 {
			ctx.JSON(http.StatusBadRequest, errorResponse("invalid_quantity", "quantity must be at least one"))
			return
		}
		for unit := 0; unit < item.Quantity; unit++ {
			cart.AddItem(tier)
		}
	}
	if err := handler.service.Purchase(ctx.Request.Context(), cart, method); err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"status": "ok", "total_amount": cart.TotalPriceCents().Int64()})
}

func (handler *httpHandler) handlePurchaseHistory(ctx *gin.Context) {
	transactions, err := handler.service.PurchaseHistory(ctx.Request.Context())
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"transactions": transactionViews(transactions)})
}

func (handler *httpHandler) handleRedeem(ctx *gin.Context) {
	var request redeemRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	couponID, err := coupon.NewCouponID(request.CouponID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	uses, err := coupon.NewUseCount(request.Uses)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	vehicle, err := coupon.NewVehicleNumber(request.VehicleNumber)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	err = handler.service.Redeem(ctx.Request.Context(), couponID, uses, request.ParkingArea, request.ParkingLotNumber, vehicle, request.StartTime)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"status": "ok"})
}

func (handler *httpHandler) handleVehicleLookup(ctx *gin.Context) {
	vehicle, err := coupon.NewVehicleNumber(ctx.Param("plate"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	lookup, err := handler.service.LookupVehicle(ctx.Request.Context(), vehicle)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"coupons": couponViews(lookup.Coupons),
		"usages":  usageViews(lookup.Usages),
	})
}

func (handler *httpHandler) handleParkingHistory(ctx *gin.Context) {
	usages, err := handler.service.ParkingHistory(ctx.Request.Context())
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"usages": usageViews(usages)})
}

func (handler *httpHandler) handleCreateReport(ctx *gin.Context) {
	var request reportRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	reportType, err := coupon.ParseReportType(request.Type)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	report, err := handler.service.CreateReport(ctx.Request.Context(), coupon.ReportInput{
		Type:             reportType,
		Title:            request.Title,
		Description:      request.Description,
		ParkingArea:      request.ParkingArea,
		ParkingLotNumber: request.ParkingLotNumber,
		ImageURLs:        request.ImageURLs,
	})
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, reportView(report))
}

func (handler *httpHandler) handleListReports(ctx *gin.Context) {
	reports, err := handler.service.ListReports(ctx.Request.Context())
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	views := make([]gin.H, 0, len(reports))
	for _, report := range reports {
		views = append(views, reportView(report))
	}
	ctx.JSON(http.StatusOK, gin.H{"reports": views})
}

func (handler *httpHandler) handleUpdateReportStatus(ctx *gin.Context) {
	var request reportStatusRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	status, err := coupon.ParseReportStatus(request.Status)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	if err := handler.service.UpdateReportStatus(ctx.Request.Context(), ctx.Param("id"), status); err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (handler *httpHandler) handleAddVehicle(ctx *gin.Context) {
	var request vehicleRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	vehicle, err := handler.service.AddVehicle(ctx.Request.Context(), request.LicensePlate, request.Favorite)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, vehicleView(vehicle))
}

func (handler *httpHandler) handleListVehicles(ctx *gin.Context) {
	vehicles, err := handler.service.FavoriteVehicles(ctx.Request.Context())
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	views := make([]gin.H, 0, len(vehicles))
	for _, vehicle := range vehicles {
		views = append(views, vehicleView(vehicle))
	}
	ctx.JSON(http.StatusOK, gin.H{"vehicles": views})
}

func (handler *httpHandler) handleRemoveVehicle(ctx *gin.Context) {
	if err := handler.service.RemoveVehicle(ctx.Request.Context(), ctx.Param("id")); err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (handler *httpHandler) handleAddParkingArea(ctx *gin.Context) {
	var request parkingAreaRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	area, err := handler.service.AddParkingArea(ctx.Request.Context(), request.Name, request.Favorite)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, parkingAreaView(area))
}

func (handler *httpHandler) handleListParkingAreas(ctx *gin.Context) {
	areas, err := handler.service.FavoriteParkingAreas(ctx.Request.Context())
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	views := make([]gin.H, 0, len(areas))
	for _, area := range areas {
		views = append(views, parkingAreaView(area))
	}
	ctx.JSON(http.StatusOK, gin.H{"areas": views})
}

func (handler *httpHandler) handleRemoveParkingArea(ctx *gin.Context) {
	if err := handler.service.RemoveParkingArea(ctx.Request.Context(), ctx.Param("id")); err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (handler *httpHandler) respondError(ctx *gin.Context, err error) {
	status, code := statusForError(err)
	if status >= http.StatusInternalServerError || status == http.StatusBadGateway {
		handler.logger.Error("operation failed", zap.Error(err))
		ctx.JSON(status, errorResponse(code, "operation failed"))
		return
	}
	ctx.JSON(status, errorResponse(code, err.Error()))
}

func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, coupon.ErrNotLoggedIn):
		return http.StatusUnauthorized, "not_logged_in"
	case errors.Is(err, coupon.ErrStaffOnly), errors.Is(err, coupon.ErrNotOwner):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, coupon.ErrCouponNotFound),
		errors.Is(err, coupon.ErrUsageNotFound),
		errors.Is(err, coupon.ErrReportNotFound),
		errors.Is(err, coupon.ErrVehicleNotFound),
		errors.Is(err, coupon.ErrParkingAreaNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, coupon.ErrInsufficientBalance):
		return http.StatusConflict, "insufficient_balance"
	case errors.Is(err, coupon.ErrStoreUnavailable):
		return http.StatusBadGateway, "store_unavailable"
	default:
		return http.StatusBadRequest, "invalid_request"
	}
}

func errorResponse(code string, message string) gin.H {
	return gin.H{"error": code, "message": message}
}
