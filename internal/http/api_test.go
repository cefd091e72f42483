package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"bankledger/internal/auth"
	"bankledger/internal/domain"
	"bankledger/internal/export"
	"bankledger/internal/repository/sqlite"
	"bankledger/internal/service"
	"bankledger/internal/storage"
)

type fakeHasher struct{}

func (fakeHasher) Hash(secret string) (string, error) { return "digest:" + secret, nil }

func (fakeHasher) Verify(secret, digest string) bool { return digest == "digest:"+secret }

// fakeStorage keeps uploaded objects in memory so route tests can observe
// archive and purge effects.
type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string][]byte)}
}

func (s *fakeStorage) UploadFile(_ context.Context, localPath string, opts storage.UploadOptions) (string, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", err
	}
	key := strings.Trim(opts.KeyPrefix, "/") + "/" + filepath.Base(localPath)
	s.mu.Lock()
	s.objects[key] = data
	s.mu.Unlock()
	return "s3://" + opts.Bucket + "/" + key, nil
}

func (s *fakeStorage) ListObjects(_ context.Context, _ string, prefix string) ([]storage.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var infos []storage.ObjectInfo
	for key, data := range s.objects {
		if strings.HasPrefix(key, prefix) {
			infos = append(infos, storage.ObjectInfo{Key: key, Size: int64(len(data))})
		}
	}
	return infos, nil
}

func (s *fakeStorage) DeletePrefix(_ context.Context, _ string, prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.objects {
		if strings.HasPrefix(key, prefix) {
			delete(s.objects, key)
		}
	}
	return nil
}

func (s *fakeStorage) PresignGet(_ context.Context, bucket, key string, _ time.Duration) (string, error) {
	return "https://" + bucket + ".example.com/" + key, nil
}

type apiFixture struct {
	router     *gin.Engine
	statements service.StatementService
	manager    export.Manager
	storage    *fakeStorage
	tokens     *auth.TokenIssuer
	spoolDir   string
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	dir := t.TempDir()
	db, err := sqlite.Open(filepath.Join(dir, "api.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	accountRepo := sqlite.NewAccountRepository(db)
	ledgerRepo := sqlite.NewLedgerRepository(db)
	attemptRepo := sqlite.NewAttemptRepository(db)
	statementRepo := sqlite.NewStatementJobRepository(db)
	for _, init := range []func(context.Context) error{accountRepo.Init, ledgerRepo.Init, attemptRepo.Init, statementRepo.Init} {
		if err := init(ctx); err != nil {
			t.Fatal(err)
		}
	}

	hasher := fakeHasher{}
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)

	accountService := service.NewAccountService(accountRepo, hasher)
	ledgerService := service.NewLedgerService(accountRepo, ledgerRepo)
	statementService := service.NewStatementService(statementRepo, accountRepo)

	loginThrottle := service.NewAttemptThrottle(attemptRepo, 5, 30*time.Minute, logger)
	loginGate, err := service.NewCredentialGate(accountRepo.GetByEmail, hasher, loginThrottle, logger)
	if err != nil {
		t.Fatal(err)
	}
	bankingThrottle := service.NewAttemptThrottle(service.NewAccountAttemptStore(accountRepo), 3, 0, logger)
	bankingGate, err := service.NewCredentialGate(accountRepo.GetByUsername, hasher, bankingThrottle, logger)
	if err != nil {
		t.Fatal(err)
	}
	authService := service.NewAuthService(loginGate, tokens)

	store := newFakeStorage()
	spoolDir := filepath.Join(dir, "spool")
	manager := export.NewManager(export.Config{
		SpoolDir:      spoolDir,
		MaxConcurrent: 1,
		UploadOptions: storage.UploadOptions{Bucket: "statements", KeyPrefix: "exports"},
		Logger:        logger,
	}, statementService, ledgerRepo, store)
	if err := manager.Start(ctx); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(manager.Shutdown)

	router := gin.New()
	handler := NewHandler(
		accountService,
		ledgerService,
		authService,
		statementService,
		bankingGate,
		manager,
		store,
		"statements",
		spoolDir,
		tokens,
	)
	handler.RegisterRoutes(router)

	if _, err := accountService.Register(ctx, domain.Profile{
		FullName: "Alice",
		Phone:    "0812000001",
		Email:    "alice@example.com",
	}, "alice", "s3cretpass"); err != nil {
		t.Fatal(err)
	}
	if _, err := ledgerService.Deposit(ctx, "alice", 500); err != nil {
		t.Fatal(err)
	}

	return &apiFixture{
		router:     router,
		statements: statementService,
		manager:    manager,
		storage:    store,
		tokens:     tokens,
		spoolDir:   spoolDir,
	}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	token, err := f.tokens.Issue("alice@example.com", "1000000001")
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) uploadedJob(t *testing.T) *domain.StatementJob {
	t.Helper()
	ctx := context.Background()

	job, err := f.statements.CreateJob(ctx, "alice", f.spoolDir)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.manager.Enqueue(ctx, job.ID); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		got, err := f.statements.GetJob(ctx, job.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.Status == domain.StatementStatusUploaded {
			return got
		}
		if got.Status == domain.StatementStatusFailed {
			t.Fatalf("export failed: %s", got.ErrorMessage)
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("export never finished")
	return nil
}

func TestDeleteStatementPurgesArchive(t *testing.T) {
	f := newAPIFixture(t)
	job := f.uploadedJob(t)

	rec := f.do(t, http.MethodGet, "/api/storage/objects?prefix=exports/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list objects: status %d, body %s", rec.Code, rec.Body)
	}
	var objects []StorageObjectResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &objects); err != nil {
		t.Fatal(err)
	}
	if len(objects) != 1 {
		t.Fatalf("archived objects = %d, want 1", len(objects))
	}

	rec = f.do(t, http.MethodDelete, "/api/statements/"+strconv.FormatInt(job.ID, 10)+"?purge_remote=true", gin.H{
		"username": "alice",
		"password": "s3cretpass",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("delete statement: status %d, body %s", rec.Code, rec.Body)
	}

	if _, err := f.statements.GetJob(context.Background(), job.ID); !errors.Is(err, service.ErrAccountNotFound) {
		t.Fatalf("job row should be gone, got %v", err)
	}
	f.storage.mu.Lock()
	remaining := len(f.storage.objects)
	f.storage.mu.Unlock()
	if remaining != 0 {
		t.Fatalf("archived object should be purged, %d left", remaining)
	}
}

func TestDeleteStatementWrongPasswordCountsAttempt(t *testing.T) {
	f := newAPIFixture(t)
	job := f.uploadedJob(t)

	rec := f.do(t, http.MethodDelete, "/api/statements/"+strconv.FormatInt(job.ID, 10), gin.H{
		"username": "alice",
		"password": "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "attempts left") {
		t.Fatalf("body should report remaining attempts, got %s", rec.Body)
	}

	// job untouched
	if _, err := f.statements.GetJob(context.Background(), job.ID); err != nil {
		t.Fatalf("rejected delete must not remove the job: %v", err)
	}
}

func TestDeleteStatementOfAnotherAccount(t *testing.T) {
	f := newAPIFixture(t)
	job := f.uploadedJob(t)

	ctx := context.Background()
	rec := f.do(t, http.MethodPost, "/api/accounts", gin.H{
		"full_name":        "Bob",
		"phone":            "0812000002",
		"email":            "bob@example.com",
		"username":         "bob",
		"password":         "s3cretpass",
		"confirm_password": "s3cretpass",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("register bob: status %d, body %s", rec.Code, rec.Body)
	}

	rec = f.do(t, http.MethodDelete, "/api/statements/"+strconv.FormatInt(job.ID, 10), gin.H{
		"username": "bob",
		"password": "s3cretpass",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status %d, want 404 for another account's statement", rec.Code)
	}
	if _, err := f.statements.GetJob(ctx, job.ID); err != nil {
		t.Fatalf("job must survive a foreign delete attempt: %v", err)
	}
}
