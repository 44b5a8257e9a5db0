package controllers

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"

	"github.com/taskpilot/taskpilot/app/repository"
)

func TestFormatTimePtr(t *testing.T) {
	assert.Nil(t, formatTimePtr(nil))

	now := time.Date(2024, 5, 1, 12, 34, 56, 0, time.Local)
	formatted := formatTimePtr(&now)
	assert.IsType(t, "", formatted)

	expected := now.UTC().Format(time.RFC3339)
	assert.Equal(t, expected, formatted)
}

func TestStrPtrValue(t *testing.T) {
	assert.Equal(t, "", strPtrValue(nil))

	s := "cus_123"
	assert.Equal(t, "cus_123", strPtrValue(&s))
}

func TestParsePagination(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		query      string
		wantOffset int
		wantLimit  int
	}{
		{name: "defaults", query: "", wantOffset: 0, wantLimit: 25},
		{name: "second page", query: "?page=2", wantOffset: 25, wantLimit: 25},
		{name: "custom limit", query: "?page=3&limit=10", wantOffset: 20, wantLimit: 10},
		{name: "limit capped", query: "?limit=500", wantOffset: 0, wantLimit: 100},
		{name: "garbage falls back", query: "?page=x&limit=y", wantOffset: 0, wantLimit: 25},
		{name: "negative page falls back", query: "?page=-1", wantOffset: 0, wantLimit: 25},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			app := fiber.New()
			var gotOffset, gotLimit int
			app.Get("/", func(c *fiber.Ctx) error {
				gotOffset, gotLimit = parsePagination(c, 25, 100)
				return c.SendStatus(fiber.StatusOK)
			})

			resp, err := app.Test(httptest.NewRequest("GET", "/"+tc.query, nil))
			assert.NoError(t, err)
			assert.Equal(t, fiber.StatusOK, resp.StatusCode)
			assert.Equal(t, tc.wantOffset, gotOffset)
			assert.Equal(t, tc.wantLimit, gotLimit)
		})
	}
}

func TestUserFilterFromQuery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		query string
		want  func(t *testing.T, f repository.UserFilter)
	}{
		{
			name:  "empty query",
			query: "",
			want: func(t *testing.T, f repository.UserFilter) {
				assert.Empty(t, f.EmailContains)
				assert.Empty(t, f.SubscriptionStatuses)
				assert.False(t, f.StatusNone)
				assert.Nil(t, f.IsAdmin)
			},
		},
		{
			name:  "email substring",
			query: "?email=%40example.com",
			want: func(t *testing.T, f repository.UserFilter) {
				assert.Equal(t, "@example.com", f.EmailContains)
			},
		},
		{
			name:  "status list with none",
			query: "?status=active,none,past_due",
			want: func(t *testing.T, f repository.UserFilter) {
				assert.Equal(t, []string{"active", "past_due"}, f.SubscriptionStatuses)
				assert.True(t, f.StatusNone)
			},
		},
		{
			name:  "admin flag true",
			query: "?is_admin=true",
			want: func(t *testing.T, f repository.UserFilter) {
				if assert.NotNil(t, f.IsAdmin) {
					assert.True(t, *f.IsAdmin)
				}
			},
		},
		{
			name:  "admin flag false",
			query: "?is_admin=false",
			want: func(t *testing.T, f repository.UserFilter) {
				if assert.NotNil(t, f.IsAdmin) {
					assert.False(t, *f.IsAdmin)
				}
			},
		},
		{
			name:  "invalid admin flag ignored",
			query: "?is_admin=maybe",
			want: func(t *testing.T, f repository.UserFilter) {
				assert.Nil(t, f.IsAdmin)
			},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			app := fiber.New()
			var got repository.UserFilter
			app.Get("/", func(c *fiber.Ctx) error {
				got = userFilterFromQuery(c)
				return c.SendStatus(fiber.StatusOK)
			})

			resp, err := app.Test(httptest.NewRequest("GET", "/"+tc.query, nil))
			assert.NoError(t, err)
			assert.Equal(t, fiber.StatusOK, resp.StatusCode)
			tc.want(t, got)
		})
	}
}
