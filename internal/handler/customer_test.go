package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mechworks/workshop-api/internal/config"
	"github.com/mechworks/workshop-api/internal/model"
	"github.com/mechworks/workshop-api/internal/utils"
)

func testCfg() config.Config {
	return config.Config{
		JWTSecret:    "handler-test-secret",
		AccessTTLMin: 60,
		BcryptCost:   4, // minimum cost keeps the suite fast
	}
}

func newCustomerEnv() (*CustomerHandler, *fakeCustomerStore, *fakeTicketStore) {
	customers := newFakeCustomerStore()
	tickets := newFakeTicketStore(customers)
	return NewCustomerHandler(testCfg(), customers, tickets), customers, tickets
}

func TestCustomerRegister(t *testing.T) {
	h, store, _ := newCustomerEnv()

	c, rec := newJSONCtx(http.MethodPost, "/v1/customers",
		`{"name":"Dana Ryle","email":"Dana@Example.com","password":"s3cret","phone":"555-0100"}`, nil)
	require.NoError(t, h.Register(c))

	require.Equal(t, http.StatusCreated, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "dana@example.com", body["email"], "emails are stored lower case")
	assert.Equal(t, "Dana Ryle", body["name"])
	assert.NotContains(t, rec.Body.String(), "password")

	saved := store.customers[1]
	assert.NotEqual(t, "s3cret", saved.PasswordHash)
	assert.True(t, utils.VerifyPassword(saved.PasswordHash, "s3cret"))
}

func TestCustomerRegisterDuplicateEmail(t *testing.T) {
	h, store, _ := newCustomerEnv()
	store.add(model.Customer{Name: "First", Email: "dana@example.com"})

	c, rec := newJSONCtx(http.MethodPost, "/v1/customers",
		`{"name":"Second","email":"dana@example.com","password":"pw"}`, nil)
	require.NoError(t, h.Register(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "email already registered", decode(t, rec)["error"])
}

func TestCustomerRegisterMissingFields(t *testing.T) {
	h, _, _ := newCustomerEnv()

	c, rec := newJSONCtx(http.MethodPost, "/v1/customers", `{"name":"No Email"}`, nil)
	require.NoError(t, h.Register(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCustomerLogin(t *testing.T) {
	h, store, _ := newCustomerEnv()
	hash, err := utils.HashPassword("pw123", 4)
	require.NoError(t, err)
	store.add(model.Customer{Name: "Dana", Email: "dana@example.com", PasswordHash: hash})

	t.Run("valid credentials", func(t *testing.T) {
		c, rec := newJSONCtx(http.MethodPost, "/v1/customers/login",
			`{"email":"dana@example.com","password":"pw123"}`, nil)
		require.NoError(t, h.Login(c))

		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		access := body["access"].(map[string]any)
		raw := access["token"].(string)

		sub, err := utils.VerifyAccessToken("handler-test-secret", raw)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), sub)
	})

	t.Run("wrong password", func(t *testing.T) {
		c, rec := newJSONCtx(http.MethodPost, "/v1/customers/login",
			`{"email":"dana@example.com","password":"nope"}`, nil)
		require.NoError(t, h.Login(c))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown email", func(t *testing.T) {
		c, rec := newJSONCtx(http.MethodPost, "/v1/customers/login",
			`{"email":"ghost@example.com","password":"pw123"}`, nil)
		require.NoError(t, h.Login(c))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestCustomerUpdateSelfOnly(t *testing.T) {
	h, store, _ := newCustomerEnv()
	store.add(model.Customer{Name: "Dana", Email: "dana@example.com"})
	store.add(model.Customer{Name: "Rival", Email: "rival@example.com"})

	t.Run("own record", func(t *testing.T) {
		c, rec := newJSONCtx(http.MethodPut, "/v1/customers/1",
			`{"address":"12 Forge Lane"}`, customerRole(1))
		setParams(c, "id", "1")
		require.NoError(t, h.Update(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "12 Forge Lane", store.customers[1].Address)
		assert.Equal(t, "Dana", store.customers[1].Name, "absent fields keep their value")
	})

	t.Run("password change is re-hashed", func(t *testing.T) {
		c, rec := newJSONCtx(http.MethodPut, "/v1/customers/1",
			`{"password":"new-secret"}`, customerRole(1))
		setParams(c, "id", "1")
		require.NoError(t, h.Update(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, utils.VerifyPassword(store.customers[1].PasswordHash, "new-secret"))
	})

	t.Run("someone else's record", func(t *testing.T) {
		c, rec := newJSONCtx(http.MethodPut, "/v1/customers/2",
			`{"address":"hijack"}`, customerRole(1))
		setParams(c, "id", "2")
		require.NoError(t, h.Update(c))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("mechanic cannot edit customers", func(t *testing.T) {
		c, rec := newJSONCtx(http.MethodPut, "/v1/customers/1",
			`{"address":"nope"}`, mechanicRole(1))
		setParams(c, "id", "1")
		require.NoError(t, h.Update(c))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestCustomerDeleteSelfOnly(t *testing.T) {
	h, store, _ := newCustomerEnv()
	store.add(model.Customer{Name: "Dana", Email: "dana@example.com"})

	c, rec := newJSONCtx(http.MethodDelete, "/v1/customers/1", "", customerRole(2))
	setParams(c, "id", "1")
	require.NoError(t, h.Delete(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	c, rec = newJSONCtx(http.MethodDelete, "/v1/customers/1", "", customerRole(1))
	setParams(c, "id", "1")
	require.NoError(t, h.Delete(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, store.customers)
}

func TestCustomerList(t *testing.T) {
	h, store, _ := newCustomerEnv()
	for i := 0; i < 15; i++ {
		store.add(model.Customer{Name: "C", Email: string(rune('a'+i)) + "@example.com"})
	}

	c, rec := newJSONCtx(http.MethodGet, "/v1/customers?page=2&per_page=10", "", customerRole(1))
	require.NoError(t, h.List(c))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Len(t, body["items"].([]any), 5)
	assert.EqualValues(t, 15, body["total"])
	assert.EqualValues(t, 2, body["total_pages"])
}

func TestCustomerMyTickets(t *testing.T) {
	h, store, tickets := newCustomerEnv()
	store.add(model.Customer{Name: "Dana", Email: "dana@example.com"})
	store.add(model.Customer{Name: "Other", Email: "other@example.com"})
	tickets.addTicket("mine 1", 1, "VIN1")
	tickets.addTicket("not mine", 2, "VIN2")
	tickets.addTicket("mine 2", 1, "VIN3")

	t.Run("full listing", func(t *testing.T) {
		c, rec := newJSONCtx(http.MethodGet, "/v1/customers/my-tickets", "", customerRole(1))
		require.NoError(t, h.MyTickets(c))
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.Len(t, body["items"].([]any), 2)
		assert.EqualValues(t, 2, body["total"])
	})

	t.Run("summary mode", func(t *testing.T) {
		c, rec := newJSONCtx(http.MethodGet, "/v1/customers/my-tickets?summary=true", "", customerRole(1))
		require.NoError(t, h.MyTickets(c))
		require.Equal(t, http.StatusOK, rec.Code)
		ids := decode(t, rec)["ticket_ids"].([]any)
		assert.ElementsMatch(t, []any{float64(1), float64(3)}, ids)
	})

	t.Run("mechanic has no personal tickets", func(t *testing.T) {
		c, rec := newJSONCtx(http.MethodGet, "/v1/customers/my-tickets", "", mechanicRole(9))
		require.NoError(t, h.MyTickets(c))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
