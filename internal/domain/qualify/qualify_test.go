package qualify

import (
	"testing"

	"github.com/dalemusser/propertyhub/internal/domain/models"
)

func f(v float64) *float64 { return &v }

func TestCheckIncome(t *testing.T) {
	tests := []struct {
		name          string
		tenant        models.Tenant
		rent          float64
		wantQualified bool
		wantRatio     float64
		wantReason    string
	}{
		{
			name:          "gross income qualifies",
			tenant:        models.Tenant{Employment: models.Employment{GrossMonthlyIncome: f(4000)}},
			rent:          1500,
			wantQualified: true,
			wantRatio:     2.67,
		},
		{
			name:          "gross income too low",
			tenant:        models.Tenant{Employment: models.Employment{GrossMonthlyIncome: f(4000)}},
			rent:          2000,
			wantQualified: false,
			wantRatio:     2,
			wantReason:    "income below required multiple of rent",
		},
		{
			name:          "net income uses stricter multiplier",
			tenant:        models.Tenant{Employment: models.Employment{NetMonthlyIncome: f(4000)}},
			rent:          1400,
			wantQualified: false,
			wantRatio:     2.86,
			wantReason:    "income below required multiple of rent",
		},
		{
			name:          "net income qualifies",
			tenant:        models.Tenant{Employment: models.Employment{NetMonthlyIncome: f(4500)}},
			rent:          1500,
			wantQualified: true,
			wantRatio:     3,
		},
		{
			name: "gross preferred over net",
			tenant: models.Tenant{Employment: models.Employment{
				GrossMonthlyIncome: f(4000),
				NetMonthlyIncome:   f(3000),
			}},
			rent:          1500,
			wantQualified: true,
			wantRatio:     2.67,
		},
		{
			name:          "no income information",
			tenant:        models.Tenant{},
			rent:          1500,
			wantQualified: false,
			wantRatio:     0,
			wantReason:    "no income information provided",
		},
		{
			name:          "zero rent",
			tenant:        models.Tenant{Employment: models.Employment{GrossMonthlyIncome: f(4000)}},
			rent:          0,
			wantQualified: false,
			wantRatio:     0,
			wantReason:    "monthly rent must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CheckIncome(tt.tenant, tt.rent)
			if got.Qualified != tt.wantQualified {
				t.Errorf("Qualified = %v, want %v", got.Qualified, tt.wantQualified)
			}
			if got.Ratio != tt.wantRatio {
				t.Errorf("Ratio = %v, want %v", got.Ratio, tt.wantRatio)
			}
			if got.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", got.Reason, tt.wantReason)
			}
		})
	}
}

func TestCheckAffordability(t *testing.T) {
	tests := []struct {
		name           string
		tenant         models.Tenant
		rent           float64
		wantAffordable bool
		wantDisposable float64
		wantShortfall  float64
		wantRatio      float64
		wantReason     string
	}{
		{
			name: "assessment affordable",
			tenant: models.Tenant{Affordability: &models.Affordability{
				MonthlyIncome:      4000,
				MonthlyExpenses:    1500,
				MonthlyCommitments: 500,
			}},
			rent:           1500,
			wantAffordable: true,
			wantDisposable: 500,
			wantRatio:      1.33,
		},
		{
			name: "assessment shortfall",
			tenant: models.Tenant{Affordability: &models.Affordability{
				MonthlyIncome:      3000,
				MonthlyExpenses:    1500,
				MonthlyCommitments: 500,
			}},
			rent:           1500,
			wantAffordable: false,
			wantShortfall:  500,
			wantRatio:      0.67,
			wantReason:     "disposable income below monthly rent",
		},
		{
			name:           "falls back to gross income",
			tenant:         models.Tenant{Employment: models.Employment{GrossMonthlyIncome: f(2000)}},
			rent:           1500,
			wantAffordable: true,
			wantDisposable: 500,
			wantRatio:      1.33,
		},
		{
			name:           "no income signal fails closed",
			tenant:         models.Tenant{},
			rent:           1500,
			wantAffordable: false,
			wantReason:     "no income data",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CheckAffordability(tt.tenant, tt.rent)
			if got.Affordable != tt.wantAffordable {
				t.Errorf("Affordable = %v, want %v", got.Affordable, tt.wantAffordable)
			}
			if got.DisposableAfterRent != tt.wantDisposable {
				t.Errorf("DisposableAfterRent = %v, want %v", got.DisposableAfterRent, tt.wantDisposable)
			}
			if got.Shortfall != tt.wantShortfall {
				t.Errorf("Shortfall = %v, want %v", got.Shortfall, tt.wantShortfall)
			}
			if got.Ratio != tt.wantRatio {
				t.Errorf("Ratio = %v, want %v", got.Ratio, tt.wantRatio)
			}
			if got.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", got.Reason, tt.wantReason)
			}
		})
	}
}
