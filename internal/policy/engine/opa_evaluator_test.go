package engine

import (
	"context"
	"testing"

	userdomain "laundry-ops/backend/internal/user/domain"
)

var admissionCases = []struct {
	channel Channel
	role    userdomain.Role
	want    bool
}{
	{ChannelDeliveryOrders, userdomain.RoleAdmin, true},
	{ChannelDeliveryOrders, userdomain.RoleSuperAdmin, true},
	{ChannelDeliveryOrders, userdomain.RoleDriver, true},
	{ChannelDeliveryOrders, userdomain.RoleCashier, false},
	{ChannelDeliveryOrders, "", false},
	{ChannelDriverLocation, userdomain.RoleDriver, true},
	{ChannelDriverLocation, userdomain.RoleAdmin, false},
	{ChannelDriverLocation, userdomain.RoleSuperAdmin, false},
	{"unknown", userdomain.RoleAdmin, false},
}

func TestOPAEvaluator_DefaultPolicy(t *testing.T) {
	ctx := context.Background()
	e, err := NewOPAEvaluator(ctx, "")
	if err != nil {
		t.Fatalf("NewOPAEvaluator: %v", err)
	}
	for _, tc := range admissionCases {
		got, err := e.Allow(ctx, tc.channel, tc.role)
		if err != nil {
			t.Errorf("Allow(%s, %s): %v", tc.channel, tc.role, err)
			continue
		}
		if got != tc.want {
			t.Errorf("Allow(%s, %s) = %v, want %v", tc.channel, tc.role, got, tc.want)
		}
	}
}

func TestStaticEvaluator_MatchesDefaultPolicy(t *testing.T) {
	ctx := context.Background()
	e := NewStaticEvaluator()
	for _, tc := range admissionCases {
		got, _ := e.Allow(ctx, tc.channel, tc.role)
		if got != tc.want {
			t.Errorf("Allow(%s, %s) = %v, want %v", tc.channel, tc.role, got, tc.want)
		}
	}
}

func TestOPAEvaluator_CustomPolicy(t *testing.T) {
	ctx := context.Background()
	policy := `package laundry.channel_admission

default allow := false

allow if {
	input.role == "operator"
}
`
	e, err := NewOPAEvaluator(ctx, policy)
	if err != nil {
		t.Fatalf("NewOPAEvaluator: %v", err)
	}
	if ok, _ := e.Allow(ctx, ChannelDeliveryOrders, userdomain.RoleOperator); !ok {
		t.Error("custom policy should admit operator")
	}
	if ok, _ := e.Allow(ctx, ChannelDeliveryOrders, userdomain.RoleAdmin); ok {
		t.Error("custom policy should deny admin")
	}
	if err := e.HealthCheck(ctx); err == nil {
		t.Error("HealthCheck should fail when driver is denied on driver-location")
	}
}

func TestOPAEvaluator_InvalidPolicy(t *testing.T) {
	if _, err := NewOPAEvaluator(context.Background(), "package broken\nallow if {"); err == nil {
		t.Fatal("NewOPAEvaluator should fail to compile invalid Rego")
	}
}

func TestOPAEvaluator_HealthCheck(t *testing.T) {
	ctx := context.Background()
	e, err := NewOPAEvaluator(ctx, "")
	if err != nil {
		t.Fatalf("NewOPAEvaluator: %v", err)
	}
	if err := e.HealthCheck(ctx); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
}
