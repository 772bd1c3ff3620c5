package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanByName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		want  string
		found bool
	}{
		{name: "Professional", want: "Professional", found: true},
		{name: "professional", want: "Professional", found: true},
		{name: "BASIC", want: "Basic", found: true},
		{name: "Platinum", found: false},
		{name: "", found: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			plan := PlanByName(tt.name)
			if !tt.found {
				assert.Nil(t, plan)
				return
			}
			require.NotNil(t, plan)
			assert.Equal(t, tt.want, plan.Name)
		})
	}
}

func TestPlanDiscountedAnnualPrice(t *testing.T) {
	t.Parallel()

	tests := []struct {
		plan string
		want int64
	}{
		{plan: "Basic", want: 9000},
		{plan: "Professional", want: 18000},
		{plan: "Enterprise", want: 90000},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.plan, func(t *testing.T) {
			t.Parallel()
			plan := PlanByName(tt.plan)
			require.NotNil(t, plan)
			assert.Equal(t, tt.want, plan.DiscountedAnnualPrice())
		})
	}
}

func TestTenderDisplayImageURL(t *testing.T) {
	t.Parallel()

	watermarked := "https://cdn.example.com/wm.jpg"
	processed := "https://cdn.example.com/img.png"
	original := "https://src.example.com/raw.jpg"
	empty := ""

	tests := []struct {
		name   string
		tender Tender
		want   string
	}{
		{
			name:   "prefers watermarked",
			tender: Tender{WatermarkedImageURL: &watermarked, ImageURL: &processed, OriginalImageURL: &original},
			want:   watermarked,
		},
		{
			name:   "falls back to processed",
			tender: Tender{ImageURL: &processed, OriginalImageURL: &original},
			want:   processed,
		},
		{
			name:   "falls back to original",
			tender: Tender{OriginalImageURL: &original},
			want:   original,
		},
		{
			name:   "empty string skipped",
			tender: Tender{WatermarkedImageURL: &empty, OriginalImageURL: &original},
			want:   original,
		},
		{
			name: "no images",
			want: "",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.tender.DisplayImageURL())
		})
	}
}
