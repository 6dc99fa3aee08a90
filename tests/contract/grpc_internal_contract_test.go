package contract

import (
	"context"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	grpcadapter "github.com/closedesk/transaction-service/internal/adapters/grpc"
	"github.com/closedesk/transaction-service/internal/application"
)

func TestInternalGetUserIdentityContract(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newContractFixture(t)
	f.profiles.add("ext-grpc", "grpc@example.com")
	if _, err := f.service.Me(ctx, "ext-grpc"); err != nil {
		t.Fatalf("provision failed: %v", err)
	}

	server := grpcadapter.NewTransactionInternalServer(f.service)
	resp, err := server.GetUserIdentity(ctx, mustStruct(t, map[string]any{"external_id": "ext-grpc"}))
	if err != nil {
		t.Fatalf("get user identity failed: %v", err)
	}
	if resp.GetFields()["email"].GetStringValue() != "grpc@example.com" {
		t.Fatalf("unexpected email: %v", resp.GetFields()["email"])
	}
	if !resp.GetFields()["linked"].GetBoolValue() {
		t.Fatalf("expected linked principal")
	}

	if _, err := server.GetUserIdentity(ctx, mustStruct(t, map[string]any{"external_id": "ext-unknown"})); status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound for unknown principal, got %v", err)
	}
	if _, err := server.GetUserIdentity(ctx, mustStruct(t, map[string]any{})); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument for missing external_id, got %v", err)
	}
}

func TestInternalCheckAccessContract(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newContractFixture(t)
	f.profiles.add("ext-owner", "owner@example.com")
	f.profiles.add("ext-stranger", "stranger@example.com")

	txn, err := f.service.CreateTransaction(ctx, "ext-owner", application.CreateTransactionRequest{Address: "12 Oak St"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := f.service.Me(ctx, "ext-stranger"); err != nil {
		t.Fatalf("provision stranger failed: %v", err)
	}

	server := grpcadapter.NewTransactionInternalServer(f.service)

	allowed, err := server.CheckAccess(ctx, mustStruct(t, map[string]any{
		"external_id":    "ext-owner",
		"action":         "transaction.manage",
		"transaction_id": txn.TransactionID.String(),
	}))
	if err != nil {
		t.Fatalf("check access failed: %v", err)
	}
	if !allowed.GetFields()["allowed"].GetBoolValue() {
		t.Fatalf("owner must be allowed to manage")
	}

	denied, err := server.CheckAccess(ctx, mustStruct(t, map[string]any{
		"external_id":    "ext-stranger",
		"action":         "transaction.view",
		"transaction_id": txn.TransactionID.String(),
	}))
	if err != nil {
		t.Fatalf("check access failed: %v", err)
	}
	if denied.GetFields()["allowed"].GetBoolValue() {
		t.Fatalf("stranger must be denied")
	}
	if denied.GetFields()["reason"].GetStringValue() != "not_found" {
		t.Fatalf("denial must not leak existence, got %v", denied.GetFields()["reason"])
	}

	// A principal never seen locally denies rather than errors.
	unknown, err := server.CheckAccess(ctx, mustStruct(t, map[string]any{
		"external_id": "ext-never-seen",
		"action":      "transaction.create",
	}))
	if err != nil {
		t.Fatalf("check access failed: %v", err)
	}
	if unknown.GetFields()["allowed"].GetBoolValue() {
		t.Fatalf("unknown principal must be denied")
	}

	if _, err := server.CheckAccess(ctx, mustStruct(t, map[string]any{
		"external_id":    "ext-owner",
		"action":         "transaction.view",
		"transaction_id": "not-a-uuid",
	})); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument for malformed id, got %v", err)
	}
}

func TestInternalGetTransactionStateContract(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newContractFixture(t)
	f.profiles.add("ext-owner", "owner@example.com")

	txn, err := f.service.CreateTransaction(ctx, "ext-owner", application.CreateTransactionRequest{Address: "12 Oak St"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := f.service.UpdateStatus(ctx, "ext-owner", txn.TransactionID, "closed"); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	server := grpcadapter.NewTransactionInternalServer(f.service)
	resp, err := server.GetTransactionState(ctx, mustStruct(t, map[string]any{
		"transaction_id": txn.TransactionID.String(),
	}))
	if err != nil {
		t.Fatalf("get state failed: %v", err)
	}
	if resp.GetFields()["status"].GetStringValue() != "closed" {
		t.Fatalf("unexpected status: %v", resp.GetFields()["status"])
	}
	if resp.GetFields()["is_open"].GetBoolValue() {
		t.Fatalf("closed transaction must not be open")
	}

	if _, err := server.GetTransactionState(ctx, mustStruct(t, map[string]any{
		"transaction_id": "1f2e3d4c-0000-4000-8000-000000000000",
	})); status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func mustStruct(t *testing.T, fields map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(fields)
	if err != nil {
		t.Fatalf("build struct: %v", err)
	}
	return s
}
