package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"bankledger/internal/auth"
	"bankledger/internal/domain"
	"bankledger/internal/export"
	"bankledger/internal/service"
	"bankledger/internal/storage"
)

// Handler wires HTTP routes to domain services.
type Handler struct {
	accounts   service.AccountService
	ledger     service.LedgerService
	authSvc    service.AuthService
	statements service.StatementService
	bankGate   *service.CredentialGate
	manager    export.Manager
	storage    storage.Service
	bucket     string
	spoolDir   string
	tokens     *auth.TokenIssuer
}

func NewHandler(
	accounts service.AccountService,
	ledger service.LedgerService,
	authSvc service.AuthService,
	statements service.StatementService,
	bankGate *service.CredentialGate,
	manager export.Manager,
	store storage.Service,
	bucket string,
	spoolDir string,
	tokens *auth.TokenIssuer,
) *Handler {
	return &Handler{
		accounts:   accounts,
		ledger:     ledger,
		authSvc:    authSvc,
		statements: statements,
		bankGate:   bankGate,
		manager:    manager,
		storage:    store,
		bucket:     bucket,
		spoolDir:   spoolDir,
		tokens:     tokens,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())

	api := router.Group("/api")
	{
		api.POST("/auth/login", h.login)
		api.POST("/accounts", h.register)
		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})

		authed := api.Group("", h.authRequired())
		{
			authed.POST("/accounts/info", h.getInfo)
			authed.PUT("/accounts", h.updateAccount)
			authed.DELETE("/accounts", h.deleteAccount)
			authed.POST("/accounts/password", h.changePassword)

			authed.POST("/ledger/deposit", h.deposit)
			authed.POST("/ledger/withdraw", h.withdraw)
			authed.POST("/ledger/transfer", h.transfer)
			authed.POST("/ledger/history", h.history)
			authed.POST("/ledger/balance", h.balance)

			authed.POST("/statements", h.createStatement)
			authed.POST("/statements/list", h.listStatements)
			authed.GET("/statements/:id/url", h.statementURL)
			authed.DELETE("/statements/:id", h.deleteStatement)
			authed.GET("/storage/objects", h.listObjects)
		}
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func (h *Handler) authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(raw) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		claims, err := h.tokens.Parse(strings.TrimSpace(raw))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set("claims", claims)
		c.Next()
	}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.authSvc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"email":          result.Email,
		"name":           result.Name,
		"account_number": result.AccountNumber,
		"token":          result.Token,
	})
}

type registerRequest struct {
	FullName        string `json:"full_name" binding:"required"`
	BirthPlace      string `json:"birth_place"`
	BirthDate       string `json:"birth_date"`
	Gender          string `json:"gender"`
	Address         string `json:"address"`
	Phone           string `json:"phone" binding:"required"`
	Email           string `json:"email" binding:"required,email"`
	Username        string `json:"username" binding:"required"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Password != req.ConfirmPassword {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password confirmation does not match"})
		return
	}

	account, err := h.accounts.Register(c.Request.Context(), domain.Profile{
		FullName:   req.FullName,
		BirthPlace: req.BirthPlace,
		BirthDate:  req.BirthDate,
		Gender:     req.Gender,
		Address:    req.Address,
		Phone:      req.Phone,
		Email:      req.Email,
	}, req.Username, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"username":       account.Username,
		"account_number": account.AccountNumber,
	})
}

type credentialRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// gate runs the banking credential gate and writes the error response on
// failure. Three wrong passwords lock the account until support resets it.
func (h *Handler) gate(c *gin.Context, username, password string) bool {
	result, _, err := h.bankGate.Authorize(c.Request.Context(), username, password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return false
	}
	switch result {
	case service.Authorized:
		return true
	case service.Locked:
		c.JSON(http.StatusForbidden, gin.H{"error": "account is locked, please contact customer service"})
		return false
	default:
		left := h.bankGate.Remaining(c.Request.Context(), username)
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": fmt.Sprintf("wrong password, %d attempts left before the account is locked", left),
		})
		return false
	}
}

func (h *Handler) getInfo(c *gin.Context) {
	var req credentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.gate(c, req.Username, req.Password) {
		return
	}

	account, err := h.accounts.GetByUsername(c.Request.Context(), req.Username)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, accountToResponse(account))
}

type updateAccountRequest struct {
	credentialRequest
	FullName   string `json:"full_name" binding:"required"`
	BirthPlace string `json:"birth_place"`
	BirthDate  string `json:"birth_date"`
	Gender     string `json:"gender"`
	Address    string `json:"address"`
	Phone      string `json:"phone" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
}

func (h *Handler) updateAccount(c *gin.Context) {
	var req updateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.gate(c, req.Username, req.Password) {
		return
	}

	err := h.accounts.UpdateProfile(c.Request.Context(), req.Username, domain.Profile{
		FullName:   req.FullName,
		BirthPlace: req.BirthPlace,
		BirthDate:  req.BirthDate,
		Gender:     req.Gender,
		Address:    req.Address,
		Phone:      req.Phone,
		Email:      req.Email,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": req.Username})
}

func (h *Handler) deleteAccount(c *gin.Context) {
	var req credentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.gate(c, req.Username, req.Password) {
		return
	}

	purgeRemote, err := strconv.ParseBool(c.DefaultQuery("purge_statements", "false"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid flag purge_statements"})
		return
	}

	account, err := h.accounts.GetByUsername(c.Request.Context(), req.Username)
	if err != nil {
		respondError(c, err)
		return
	}

	var warnings []string
	if purgeRemote {
		if h.storage == nil || h.bucket == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "statement storage not configured"})
			return
		}
		jobs, err := h.statements.ListJobs(c.Request.Context(), req.Username)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("list statements: %v", err))
		}
		for _, job := range jobs {
			if key, err := extractS3Key(job.S3Location, h.bucket); err == nil && key != "" {
				if err := h.storage.DeletePrefix(c.Request.Context(), h.bucket, key); err != nil {
					warnings = append(warnings, fmt.Sprintf("delete statement %d: %v", job.ID, err))
				}
			}
		}
	}

	if err := h.accounts.Close(c.Request.Context(), req.Username); err != nil {
		respondError(c, err)
		return
	}

	resp := gin.H{"deleted": account.Username}
	if len(warnings) > 0 {
		resp["warnings"] = warnings
	}
	c.JSON(http.StatusOK, resp)
}

type changePasswordRequest struct {
	credentialRequest
	NewPassword        string `json:"new_password" binding:"required"`
	ConfirmNewPassword string `json:"confirm_new_password" binding:"required"`
}

func (h *Handler) changePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.NewPassword != req.ConfirmNewPassword {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password confirmation does not match"})
		return
	}
	if !h.gate(c, req.Username, req.Password) {
		return
	}

	if err := h.accounts.ChangePassword(c.Request.Context(), req.Username, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": req.Username})
}

type amountRequest struct {
	credentialRequest
	Amount int64 `json:"amount" binding:"required"`
}

func (h *Handler) deposit(c *gin.Context) {
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.gate(c, req.Username, req.Password) {
		return
	}

	newBalance, err := h.ledger.Deposit(c.Request.Context(), req.Username, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": newBalance})
}

func (h *Handler) withdraw(c *gin.Context) {
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.gate(c, req.Username, req.Password) {
		return
	}

	newBalance, err := h.ledger.Withdraw(c.Request.Context(), req.Username, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": newBalance})
}

type transferRequest struct {
	credentialRequest
	Destination string `json:"destination" binding:"required"`
	Amount      int64  `json:"amount" binding:"required"`
	Narrative   string `json:"narrative"`
}

func (h *Handler) transfer(c *gin.Context) {
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.gate(c, req.Username, req.Password) {
		return
	}

	newBalance, err := h.ledger.Transfer(c.Request.Context(), req.Username, req.Destination, req.Amount, req.Narrative)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": newBalance})
}

func (h *Handler) balance(c *gin.Context) {
	var req credentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.gate(c, req.Username, req.Password) {
		return
	}

	number, balance, err := h.ledger.GetBalance(c.Request.Context(), req.Username)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account_number": number, "balance": balance})
}

type historyRequest struct {
	credentialRequest
	Direction string `json:"direction"`
	Order     string `json:"order"`
}

func (h *Handler) history(c *gin.Context) {
	var req historyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.gate(c, req.Username, req.Password) {
		return
	}

	var direction *domain.Direction
	if req.Direction != "" {
		d := domain.Direction(req.Direction)
		if !d.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "direction must be inbound or outbound"})
			return
		}
		direction = &d
	}
	order := domain.OrderNewestFirst
	if req.Order == string(domain.OrderOldestFirst) {
		order = domain.OrderOldestFirst
	}

	history, err := h.ledger.GetTransactionHistory(c.Request.Context(), req.Username, direction, order)
	if err != nil {
		respondError(c, err)
		return
	}

	entries := make([]TransactionResponse, len(history.Transactions))
	for i := range history.Transactions {
		entries[i] = transactionToResponse(history.Transactions[i])
	}
	c.JSON(http.StatusOK, gin.H{
		"account_number": history.AccountNumber,
		"balance":        history.Balance,
		"transactions":   entries,
	})
}

func (h *Handler) createStatement(c *gin.Context) {
	if h.manager == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "statement export not configured"})
		return
	}

	var req credentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.gate(c, req.Username, req.Password) {
		return
	}

	job, err := h.statements.CreateJob(c.Request.Context(), req.Username, h.spoolDir)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.manager.Enqueue(c.Request.Context(), job.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, statementToResponse(*job))
}

func (h *Handler) listStatements(c *gin.Context) {
	var req credentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.gate(c, req.Username, req.Password) {
		return
	}

	jobs, err := h.statements.ListJobs(c.Request.Context(), req.Username)
	if err != nil {
		respondError(c, err)
		return
	}
	resp := make([]StatementResponse, len(jobs))
	for i := range jobs {
		resp[i] = statementToResponse(jobs[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) statementURL(c *gin.Context) {
	if h.storage == nil || h.bucket == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "statement storage not configured"})
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid statement id"})
		return
	}

	job, err := h.statements.GetJob(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if job.Status != domain.StatementStatusUploaded || job.S3Location == "" {
		c.JSON(http.StatusConflict, gin.H{"error": "statement is not archived yet"})
		return
	}

	key, err := extractS3Key(job.S3Location, h.bucket)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	url, err := h.storage.PresignGet(c.Request.Context(), h.bucket, key, 15*time.Minute)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// deleteStatement cancels a running export, optionally purges the archived
// object, removes the spool file, and drops the job row.
func (h *Handler) deleteStatement(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid statement id"})
		return
	}

	purgeRemote, err := strconv.ParseBool(c.DefaultQuery("purge_remote", "false"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid flag purge_remote"})
		return
	}

	var req credentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.gate(c, req.Username, req.Password) {
		return
	}

	account, err := h.accounts.GetByUsername(c.Request.Context(), req.Username)
	if err != nil {
		respondError(c, err)
		return
	}
	job, err := h.statements.GetJob(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if job.AccountNumber != account.AccountNumber {
		c.JSON(http.StatusNotFound, gin.H{"error": "statement not found"})
		return
	}

	var warnings []string
	if h.manager != nil {
		cancelCtx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()
		if err := h.manager.Cancel(cancelCtx, job.ID); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			warnings = append(warnings, fmt.Sprintf("cancel export: %v", err))
		}
	}

	if purgeRemote {
		if h.storage == nil || h.bucket == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "statement storage not configured"})
			return
		}
		if job.S3Location != "" {
			key, err := extractS3Key(job.S3Location, h.bucket)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if key != "" {
				remoteCtx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
				defer cancel()
				if err := h.storage.DeletePrefix(remoteCtx, h.bucket, key); err != nil {
					warnings = append(warnings, fmt.Sprintf("delete archived statement: %v", err))
				}
			}
		}
	}

	if job.LocalPath != "" {
		if err := os.Remove(job.LocalPath); err != nil && !os.IsNotExist(err) {
			warnings = append(warnings, fmt.Sprintf("remove spool file: %v", err))
		}
	}

	if err := h.statements.DeleteJob(c.Request.Context(), job.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := gin.H{"deleted": job.ID}
	if len(warnings) > 0 {
		resp["warnings"] = warnings
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) listObjects(c *gin.Context) {
	if h.storage == nil || h.bucket == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "statement storage not configured"})
		return
	}

	objects, err := h.storage.ListObjects(c.Request.Context(), h.bucket, c.Query("prefix"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]StorageObjectResponse, len(objects))
	for i := range objects {
		resp[i] = objectToResponse(objects[i])
	}
	c.JSON(http.StatusOK, resp)
}

type AccountResponse struct {
	Username      string `json:"username"`
	AccountNumber string `json:"account_number"`
	FullName      string `json:"full_name"`
	BirthPlace    string `json:"birth_place"`
	BirthDate     string `json:"birth_date"`
	Gender        string `json:"gender"`
	Address       string `json:"address"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
}

type TransactionResponse struct {
	AccountNumber string `json:"account_number"`
	Timestamp     string `json:"timestamp"`
	Direction     string `json:"direction"`
	Narrative     string `json:"narrative"`
	Amount        int64  `json:"amount"`
	Reference     string `json:"reference,omitempty"`
}

type StatementResponse struct {
	ID            int64   `json:"id"`
	AccountNumber string  `json:"account_number"`
	Status        string  `json:"status"`
	S3Location    string  `json:"s3_location,omitempty"`
	ErrorMessage  string  `json:"error_message,omitempty"`
	CreatedAt     string  `json:"created_at"`
	UploadedAt    *string `json:"uploaded_at,omitempty"`
}

type StorageObjectResponse struct {
	Key          string  `json:"key"`
	Size         int64   `json:"size"`
	LastModified *string `json:"last_modified,omitempty"`
}

func objectToResponse(obj storage.ObjectInfo) StorageObjectResponse {
	resp := StorageObjectResponse{
		Key:  obj.Key,
		Size: obj.Size,
	}
	if obj.LastModified != nil {
		v := obj.LastModified.Format(time.RFC3339)
		resp.LastModified = &v
	}
	return resp
}

func accountToResponse(account *domain.Account) AccountResponse {
	return AccountResponse{
		Username:      account.Username,
		AccountNumber: account.AccountNumber,
		FullName:      account.FullName,
		BirthPlace:    account.BirthPlace,
		BirthDate:     account.BirthDate,
		Gender:        account.Gender,
		Address:       account.Address,
		Phone:         account.Phone,
		Email:         account.Email,
	}
}

func transactionToResponse(entry domain.Transaction) TransactionResponse {
	return TransactionResponse{
		AccountNumber: entry.AccountNumber,
		Timestamp:     entry.Timestamp.Format(time.RFC3339),
		Direction:     string(entry.Direction),
		Narrative:     entry.Narrative,
		Amount:        entry.Amount,
		Reference:     entry.Reference,
	}
}

func statementToResponse(job domain.StatementJob) StatementResponse {
	resp := StatementResponse{
		ID:            job.ID,
		AccountNumber: job.AccountNumber,
		Status:        string(job.Status),
		S3Location:    job.S3Location,
		ErrorMessage:  job.ErrorMessage,
		CreatedAt:     job.CreatedAt.Format(time.RFC3339),
	}
	if job.UploadedAt != nil {
		v := job.UploadedAt.Format(time.RFC3339)
		resp.UploadedAt = &v
	}
	return resp
}

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrLocked):
		c.JSON(http.StatusForbidden, gin.H{"error": "account is locked, please contact customer service"})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "wrong email or password"})
	case errors.Is(err, service.ErrAccountNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
	case errors.Is(err, service.ErrDestinationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "destination account not found"})
	case errors.Is(err, service.ErrDuplicateIdentity):
		c.JSON(http.StatusConflict, gin.H{"error": "username, email, or phone already registered"})
	case errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrSameAccount),
		errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInsufficientFunds):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "insufficient funds"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func extractS3Key(location, bucket string) (string, error) {
	if !strings.HasPrefix(location, "s3://") {
		return "", fmt.Errorf("invalid s3 location")
	}
	rest := strings.TrimPrefix(location, "s3://")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) == 0 || parts[0] == "" {
		return "", fmt.Errorf("invalid s3 location")
	}
	if bucket != "" && parts[0] != bucket {
		return "", fmt.Errorf("s3 bucket mismatch")
	}
	if len(parts) == 1 {
		return "", fmt.Errorf("s3 key missing")
	}
	return strings.TrimPrefix(parts[1], "/"), nil
}
