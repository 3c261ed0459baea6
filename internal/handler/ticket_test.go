package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mechworks/workshop-api/internal/auth"
	"github.com/mechworks/workshop-api/internal/model"
	"github.com/mechworks/workshop-api/internal/queue"
)

type ticketEnv struct {
	h         *TicketHandler
	tickets   *fakeTicketStore
	customers *fakeCustomerStore
	created   chan queue.TicketCreatedEvent
	parts     chan queue.TicketPartsAddedEvent
}

func newTicketEnv() *ticketEnv {
	customers := newFakeCustomerStore()
	tickets := newFakeTicketStore(customers)
	env := &ticketEnv{
		h:         NewTicketHandler(tickets, customers),
		tickets:   tickets,
		customers: customers,
		created:   make(chan queue.TicketCreatedEvent, 1),
		parts:     make(chan queue.TicketPartsAddedEvent, 1),
	}
	env.h.PublishCreated = func(_ context.Context, ev queue.TicketCreatedEvent) error {
		env.created <- ev
		return nil
	}
	env.h.PublishPartsAdded = func(_ context.Context, ev queue.TicketPartsAddedEvent) error {
		env.parts <- ev
		return nil
	}
	return env
}

func newJSONCtx(method, target, body string, role *auth.Role) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if role != nil {
		c.Set("role", *role)
	}
	return c, rec
}

func setParams(c echo.Context, pairs ...string) {
	names := make([]string, 0, len(pairs)/2)
	values := make([]string, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		names = append(names, pairs[i])
		values = append(values, pairs[i+1])
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func mechanicRole(id uint64) *auth.Role { return &auth.Role{Kind: auth.RoleMechanic, SubjectID: id} }
func customerRole(id uint64) *auth.Role { return &auth.Role{Kind: auth.RoleCustomer, SubjectID: id} }

func awaitCreated(t *testing.T, ch chan queue.TicketCreatedEvent) queue.TicketCreatedEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no ticket.created event published")
		return queue.TicketCreatedEvent{}
	}
}

func awaitPartsAdded(t *testing.T, ch chan queue.TicketPartsAddedEvent) queue.TicketPartsAddedEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no ticket.parts_added event published")
		return queue.TicketPartsAddedEvent{}
	}
}

func TestTicketCreate(t *testing.T) {
	env := newTicketEnv()
	cust := env.customers.add(model.Customer{Name: "Dana Ryle", Email: "dana@example.com"})

	c, rec := newJSONCtx(http.MethodPost, "/v1/service-tickets",
		`{"description":"brake pads worn","vin":"1hgcm82633a004352","customer_id":1}`,
		mechanicRole(10))
	require.NoError(t, env.h.Create(c))

	require.Equal(t, http.StatusCreated, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "1HGCM82633A004352", body["vin"], "vin is normalized to upper case")
	assert.Equal(t, "brake pads worn", body["description"])
	assert.EqualValues(t, cust.ID, body["customer_id"])
	assert.EqualValues(t, 1, body["id"])

	ev := awaitCreated(t, env.created)
	assert.Equal(t, uint64(1), ev.TicketID)
	assert.Equal(t, "1HGCM82633A004352", ev.VIN)
	assert.Equal(t, "Dana Ryle", ev.CustomerName)
}

func TestTicketCreateDuplicateVIN(t *testing.T) {
	env := newTicketEnv()
	env.customers.add(model.Customer{Name: "Dana", Email: "dana@example.com"})
	env.tickets.addTicket("first visit", 1, "1HGCM82633A004352")

	c, rec := newJSONCtx(http.MethodPost, "/v1/service-tickets",
		`{"description":"second visit","vin":"1HGCM82633A004352","customer_id":1}`,
		mechanicRole(10))
	require.NoError(t, env.h.Create(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "a ticket already exists for this vin", decode(t, rec)["error"])
	assert.Len(t, env.tickets.tickets, 1)
}

func TestTicketCreateUnknownCustomer(t *testing.T) {
	env := newTicketEnv()

	c, rec := newJSONCtx(http.MethodPost, "/v1/service-tickets",
		`{"description":"oil change","vin":"WVWZZZ1JZXW000001","customer_id":99}`,
		mechanicRole(10))
	require.NoError(t, env.h.Create(c))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTicketGetVisibility(t *testing.T) {
	env := newTicketEnv()
	env.customers.add(model.Customer{Name: "Owner", Email: "owner@example.com"})
	env.customers.add(model.Customer{Name: "Other", Email: "other@example.com"})
	tk := env.tickets.addTicket("timing belt", 1, "VIN0001")

	t.Run("owner can read", func(t *testing.T) {
		c, rec := newJSONCtx(http.MethodGet, "/v1/service-tickets/1", "", customerRole(1))
		setParams(c, "id", "1")
		require.NoError(t, env.h.Get(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.EqualValues(t, tk.ID, decode(t, rec)["id"])
	})

	t.Run("other customer is denied", func(t *testing.T) {
		c, rec := newJSONCtx(http.MethodGet, "/v1/service-tickets/1", "", customerRole(2))
		setParams(c, "id", "1")
		require.NoError(t, env.h.Get(c))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("mechanic can read any", func(t *testing.T) {
		c, rec := newJSONCtx(http.MethodGet, "/v1/service-tickets/1", "", mechanicRole(10))
		setParams(c, "id", "1")
		require.NoError(t, env.h.Get(c))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestTicketListByRole(t *testing.T) {
	env := newTicketEnv()
	env.customers.add(model.Customer{Name: "A", Email: "a@example.com"})
	env.customers.add(model.Customer{Name: "B", Email: "b@example.com"})
	env.tickets.addTicket("t1", 1, "VIN1")
	env.tickets.addTicket("t2", 2, "VIN2")
	env.tickets.addTicket("t3", 2, "VIN3")

	t.Run("mechanic sees everything", func(t *testing.T) {
		c, rec := newJSONCtx(http.MethodGet, "/v1/service-tickets", "", mechanicRole(10))
		require.NoError(t, env.h.List(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		items := decode(t, rec)["items"].([]any)
		assert.Len(t, items, 3)
	})

	t.Run("customer sees only their own", func(t *testing.T) {
		c, rec := newJSONCtx(http.MethodGet, "/v1/service-tickets", "", customerRole(2))
		require.NoError(t, env.h.List(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		items := body["items"].([]any)
		require.Len(t, items, 2)
		for _, it := range items {
			assert.EqualValues(t, 2, it.(map[string]any)["customer_id"])
		}
		assert.EqualValues(t, 2, body["total"])
	})
}

func TestAssignMechanicIdempotent(t *testing.T) {
	env := newTicketEnv()
	env.customers.add(model.Customer{Name: "A", Email: "a@example.com"})
	env.tickets.addTicket("t1", 1, "VIN1")
	env.tickets.mechanics[7] = model.Mechanic{ID: 7, Name: "Pat"}

	assign := func() *httptest.ResponseRecorder {
		c, rec := newJSONCtx(http.MethodPut, "/v1/service-tickets/1/assign-mechanic/7", "", mechanicRole(7))
		setParams(c, "id", "1", "mechanic_id", "7")
		require.NoError(t, env.h.AssignMechanic(c))
		return rec
	}

	first := assign()
	assert.Equal(t, http.StatusOK, first.Code)
	second := assign()
	assert.Equal(t, http.StatusOK, second.Code, "repeat assignment is a no-op, not an error")

	mechs := decode(t, second)["mechanics"].([]any)
	assert.Len(t, mechs, 1)
}

func TestAssignMechanicUnknownTarget(t *testing.T) {
	env := newTicketEnv()
	env.customers.add(model.Customer{Name: "A", Email: "a@example.com"})
	env.tickets.addTicket("t1", 1, "VIN1")

	c, rec := newJSONCtx(http.MethodPut, "/v1/service-tickets/1/assign-mechanic/99", "", mechanicRole(7))
	setParams(c, "id", "1", "mechanic_id", "99")
	require.NoError(t, env.h.AssignMechanic(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRemoveMechanicAbsentPairIsNoOp(t *testing.T) {
	env := newTicketEnv()
	env.customers.add(model.Customer{Name: "A", Email: "a@example.com"})
	env.tickets.addTicket("t1", 1, "VIN1")
	env.tickets.mechanics[7] = model.Mechanic{ID: 7, Name: "Pat"}

	c, rec := newJSONCtx(http.MethodDelete, "/v1/service-tickets/1/remove-mechanic/7", "", mechanicRole(7))
	setParams(c, "id", "1", "mechanic_id", "7")
	require.NoError(t, env.h.RemoveMechanic(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode(t, rec)["mechanics"])
}

func TestBulkEditSkipsUnknownMechanics(t *testing.T) {
	env := newTicketEnv()
	env.customers.add(model.Customer{Name: "A", Email: "a@example.com"})
	env.tickets.addTicket("t1", 1, "VIN1")
	env.tickets.mechanics[7] = model.Mechanic{ID: 7, Name: "Pat"}

	c, rec := newJSONCtx(http.MethodPut, "/v1/service-tickets/1/edit",
		`{"add_mechanic_ids":[7,99],"description":"updated"}`,
		mechanicRole(7))
	setParams(c, "id", "1")
	require.NoError(t, env.h.Edit(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "updated", body["description"])
	mechs := body["mechanics"].([]any)
	require.Len(t, mechs, 1, "unknown mechanic ids are skipped")
	assert.EqualValues(t, 7, mechs[0].(map[string]any)["id"])
}

func TestAddPartsPartialBatch(t *testing.T) {
	env := newTicketEnv()
	env.customers.add(model.Customer{Name: "A", Email: "a@example.com"})
	env.tickets.addTicket("t1", 1, "VIN1")
	env.tickets.parts[3] = model.Part{ID: 3, Name: "Oil filter", SKU: "OF-3"}

	c, rec := newJSONCtx(http.MethodPost, "/v1/service-tickets/1/add-parts",
		`{"part_ids":[3,999]}`, mechanicRole(7))
	setParams(c, "id", "1")
	require.NoError(t, env.h.AddParts(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.EqualValues(t, 1, body["added_count"], "only the resolvable id counts")
	assert.Len(t, body["parts"].([]any), 1)

	ev := awaitPartsAdded(t, env.parts)
	assert.Equal(t, 1, ev.ResolvedCount)
	assert.Equal(t, []uint64{3, 999}, ev.PartIDs)
}

func TestAddPartsNoneValid(t *testing.T) {
	env := newTicketEnv()
	env.customers.add(model.Customer{Name: "A", Email: "a@example.com"})
	env.tickets.addTicket("t1", 1, "VIN1")

	c, rec := newJSONCtx(http.MethodPost, "/v1/service-tickets/1/add-parts",
		`{"part_ids":[888,999]}`, mechanicRole(7))
	setParams(c, "id", "1")
	require.NoError(t, env.h.AddParts(c))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "no valid parts in request", decode(t, rec)["error"])
	assert.Empty(t, env.tickets.fitted[1], "nothing is persisted when no id resolves")

	select {
	case ev := <-env.parts:
		t.Fatalf("unexpected event published: %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRemovePartNotAssociated(t *testing.T) {
	env := newTicketEnv()
	env.customers.add(model.Customer{Name: "A", Email: "a@example.com"})
	env.tickets.addTicket("t1", 1, "VIN1")
	env.tickets.parts[3] = model.Part{ID: 3, Name: "Oil filter", SKU: "OF-3"}

	c, rec := newJSONCtx(http.MethodDelete, "/v1/service-tickets/1/remove-part/3", "", mechanicRole(7))
	setParams(c, "id", "1", "part_id", "3")
	require.NoError(t, env.h.RemovePart(c))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "part is not on this ticket", decode(t, rec)["error"])
}

func TestRemovePartHappyPath(t *testing.T) {
	env := newTicketEnv()
	env.customers.add(model.Customer{Name: "A", Email: "a@example.com"})
	env.tickets.addTicket("t1", 1, "VIN1")
	env.tickets.parts[3] = model.Part{ID: 3, Name: "Oil filter", SKU: "OF-3"}
	env.tickets.fitted[1][3] = true

	c, rec := newJSONCtx(http.MethodDelete, "/v1/service-tickets/1/remove-part/3", "", mechanicRole(7))
	setParams(c, "id", "1", "part_id", "3")
	require.NoError(t, env.h.RemovePart(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode(t, rec)["parts"])
}

func TestTicketDelete(t *testing.T) {
	env := newTicketEnv()
	env.customers.add(model.Customer{Name: "A", Email: "a@example.com"})
	env.tickets.addTicket("t1", 1, "VIN1")

	c, rec := newJSONCtx(http.MethodDelete, "/v1/service-tickets/1", "", mechanicRole(7))
	setParams(c, "id", "1")
	require.NoError(t, env.h.Delete(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	c, rec = newJSONCtx(http.MethodDelete, "/v1/service-tickets/1", "", mechanicRole(7))
	setParams(c, "id", "1")
	require.NoError(t, env.h.Delete(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
