package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shoplist/internal/shop"
)

func TestHomeView(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "No active list.")

	ctx := context.Background()
	listID, err := f.store.CreateList(ctx)
	require.NoError(t, err)
	_, err = f.store.AddItem(ctx, listID, shop.ItemInput{Name: "Milk", ImagePath: "milk.png"})
	require.NoError(t, err)

	w = f.do(t, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.Contains(t, body, `data-list-id="`+listID+`"`)
	assert.Contains(t, body, `<span class="name">Milk</span>`)
	assert.Contains(t, body, `src="milk.png"`)
	assert.Contains(t, body, "Started Fri 2 Jan 2026")
}

func TestHistoryView(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first, err := f.store.CreateList(ctx)
	require.NoError(t, err)
	require.NoError(t, f.store.DeactivateList(ctx, first))
	second, err := f.store.CreateList(ctx)
	require.NoError(t, err)

	w := f.do(t, http.MethodGet, "/lists", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `data-list-id="`+first+`"`)
	assert.Contains(t, body, `data-list-id="`+second+`" class="active"`)
	assert.Less(t, strings.Index(body, second), strings.Index(body, first), "newest list first")
}

func TestStaticScript(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/static/app.js", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/api/items/add")

	w = f.do(t, http.MethodGet, "/nothing-here", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestViewEscapesNames(t *testing.T) {
	srv := New(brokenStore{}, brokenLifecycle{})
	w := httptest.NewRecorder()
	srv.render(w, "home.html", homeView{List: &shop.CurrentList{
		ID:    `"><script>`,
		Items: []shop.Entry{{ItemID: "i", Name: "<b>"}},
	}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "<script>")
	assert.Contains(t, w.Body.String(), "&lt;b&gt;")
}
