package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"bankledger/internal/domain"
	"bankledger/internal/repository"
	"bankledger/internal/repository/sqlite"
)

func newAccountFixture(t *testing.T) (repository.AccountRepository, repository.LedgerRepository, AccountService) {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "accounts.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	accounts := sqlite.NewAccountRepository(db)
	ledger := sqlite.NewLedgerRepository(db)
	if err := accounts.Init(ctx); err != nil {
		t.Fatal(err)
	}
	if err := ledger.Init(ctx); err != nil {
		t.Fatal(err)
	}

	return accounts, ledger, NewAccountService(accounts, &plainHasher{})
}

func testProfile(name string) domain.Profile {
	return domain.Profile{
		FullName: name,
		Phone:    "0812" + name,
		Email:    name + "@example.com",
		Address:  "Jl. Test 1",
	}
}

func TestRegisterAssignsAccountNumber(t *testing.T) {
	ctx := context.Background()
	_, _, svc := newAccountFixture(t)

	account, err := svc.Register(ctx, testProfile("alice"), "alice", "s3cretpass")
	if err != nil {
		t.Fatal(err)
	}
	if len(account.AccountNumber) != 10 {
		t.Fatalf("account number %q, want 10 digits", account.AccountNumber)
	}
	if account.Balance != 0 {
		t.Fatalf("new account balance = %d, want 0", account.Balance)
	}
	if account.PasswordHash == "s3cretpass" {
		t.Fatal("password stored in clear")
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	_, _, svc := newAccountFixture(t)

	if _, err := svc.Register(ctx, testProfile("alice"), "alice", "s3cretpass"); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name     string
		profile  domain.Profile
		username string
	}{
		{"username taken", testProfile("bob"), "alice"},
		{"email taken", domain.Profile{FullName: "Bob", Phone: "0812bob", Email: "alice@example.com"}, "bob"},
		{"phone taken", domain.Profile{FullName: "Bob", Phone: "0812alice", Email: "bob@example.com"}, "bob"},
	}
	for _, tc := range cases {
		if _, err := svc.Register(ctx, tc.profile, tc.username, "s3cretpass"); !errors.Is(err, ErrDuplicateIdentity) {
			t.Errorf("%s: want ErrDuplicateIdentity, got %v", tc.name, err)
		}
	}
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	_, _, svc := newAccountFixture(t)

	if _, err := svc.Register(ctx, testProfile("alice"), "", "s3cretpass"); !errors.Is(err, ErrValidation) {
		t.Fatalf("blank username: want ErrValidation, got %v", err)
	}
	if _, err := svc.Register(ctx, domain.Profile{FullName: "A"}, "alice", "s3cretpass"); !errors.Is(err, ErrValidation) {
		t.Fatalf("missing contact: want ErrValidation, got %v", err)
	}
	if _, err := svc.Register(ctx, testProfile("alice"), "alice", "short"); !errors.Is(err, ErrValidation) {
		t.Fatalf("short password: want ErrValidation, got %v", err)
	}
}

func TestUpdateProfileAllowsOwnValues(t *testing.T) {
	ctx := context.Background()
	_, _, svc := newAccountFixture(t)

	if _, err := svc.Register(ctx, testProfile("alice"), "alice", "s3cretpass"); err != nil {
		t.Fatal(err)
	}

	// Re-submitting the account's own email and phone is not a conflict.
	updated := testProfile("alice")
	updated.Address = "Jl. Baru 99"
	if err := svc.UpdateProfile(ctx, "alice", updated); err != nil {
		t.Fatalf("own values rejected: %v", err)
	}

	account, err := svc.GetByUsername(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if account.Address != "Jl. Baru 99" {
		t.Fatalf("address = %q, want updated value", account.Address)
	}
}

func TestUpdateProfileRejectsAnotherAccountsContact(t *testing.T) {
	ctx := context.Background()
	_, _, svc := newAccountFixture(t)

	if _, err := svc.Register(ctx, testProfile("alice"), "alice", "s3cretpass"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Register(ctx, testProfile("bob"), "bob", "s3cretpass"); err != nil {
		t.Fatal(err)
	}

	stolen := testProfile("bob")
	stolen.Email = "alice@example.com"
	if err := svc.UpdateProfile(ctx, "bob", stolen); !errors.Is(err, ErrDuplicateIdentity) {
		t.Fatalf("want ErrDuplicateIdentity, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	_, _, svc := newAccountFixture(t)

	if _, err := svc.Register(ctx, testProfile("alice"), "alice", "s3cretpass"); err != nil {
		t.Fatal(err)
	}
	if err := svc.ChangePassword(ctx, "alice", "short"); !errors.Is(err, ErrValidation) {
		t.Fatalf("short password: want ErrValidation, got %v", err)
	}
	if err := svc.ChangePassword(ctx, "alice", "news3cret"); err != nil {
		t.Fatal(err)
	}

	account, err := svc.GetByUsername(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if account.PasswordHash != "digest:news3cret" {
		t.Fatalf("hash = %q, want digest of new password", account.PasswordHash)
	}

	if err := svc.ChangePassword(ctx, "ghost", "news3cret"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("unknown account: want ErrAccountNotFound, got %v", err)
	}
}

func TestCloseRetainsTransactionHistory(t *testing.T) {
	ctx := context.Background()
	accounts, ledgerRepo, svc := newAccountFixture(t)

	account, err := svc.Register(ctx, testProfile("alice"), "alice", "s3cretpass")
	if err != nil {
		t.Fatal(err)
	}

	ledger := NewLedgerService(accounts, ledgerRepo)
	if _, err := ledger.Deposit(ctx, "alice", 500); err != nil {
		t.Fatal(err)
	}

	if err := svc.Close(ctx, "alice"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.GetByUsername(ctx, "alice"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("closed account still resolvable: %v", err)
	}

	entries, err := ledgerRepo.ListTransactions(ctx, account.AccountNumber, nil, domain.OrderOldestFirst)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("history lost on closure: got %d records, want 1", len(entries))
	}

	if err := svc.Close(ctx, "alice"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("double close: want ErrAccountNotFound, got %v", err)
	}
}
