package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/zhengchen1025/cook-cook/internal/services"
)

func TestCreateAttempt_ValidationAndGating(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newHandlerDB(t)
	h := newHandlers(t, db)
	svc := services.NewRecipeService(db)

	open := mustRecipe(t, svc, "", services.RecipeInput{Title: "Open pot"})
	seedAuthor(t, db, "chef-1")
	owned := mustRecipe(t, svc, "chef-1", services.RecipeInput{Title: "Guarded pot"})

	anon := gin.New()
	anon.POST("/recipes/:id/attempts", h.CreateAttempt)
	stranger := gin.New()
	stranger.POST("/recipes/:id/attempts", asUser("someone-else"), h.CreateAttempt)

	// body is required
	w := postJSON(anon, "/recipes/"+open.ID+"/attempts", `{"feedback":"?"}`)
	if w.Code != http.StatusBadRequest || *decodeErrors(t, w).Errors[0].Field != "body" {
		t.Fatalf("missing body -> %d %s", w.Code, w.Body.String())
	}

	// unknown recipe
	w = postJSON(anon, "/recipes/ghost/attempts", `{"body":"x"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown recipe -> %d", w.Code)
	}

	// authorless recipes accept anonymous attempts
	w = postJSON(anon, "/recipes/"+open.ID+"/attempts", `{"body":"first try","images":["/uploads/a.jpg",""]}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("anon attempt -> %d %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"/uploads/a.jpg"`) || !strings.Contains(w.Body.String(), `"meta":{}`) {
		t.Fatalf("attempt body: %s", w.Body.String())
	}

	// owned recipes refuse anonymous and foreign writers
	w = postJSON(anon, "/recipes/"+owned.ID+"/attempts", `{"body":"x"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("anon on owned -> %d", w.Code)
	}
	seedAuthor(t, db, "someone-else")
	w = postJSON(stranger, "/recipes/"+owned.ID+"/attempts", `{"body":"x"}`)
	if w.Code != http.StatusForbidden {
		t.Fatalf("stranger on owned -> %d", w.Code)
	}
}

func TestListAttempts_NewestFirstAndETag(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newHandlerDB(t)
	h := newHandlers(t, db)
	recipeSvc := services.NewRecipeService(db)
	attemptSvc := services.NewAttemptService(db)

	rec := mustRecipe(t, recipeSvc, "", services.RecipeInput{Title: "Broth", Body: "v1"})
	if _, err := attemptSvc.Create(context.Background(), "", rec.ID, services.AttemptInput{Body: "v2"}); err != nil {
		t.Fatalf("seed attempt: %v", err)
	}

	r := gin.New()
	r.GET("/recipes/:id/attempts", h.ListAttempts)

	// unknown recipe is 404, not an empty list
	w := httptest.NewRecorder()
	r.ServeHTTP(w, jsonReq(http.MethodGet, "/recipes/ghost/attempts", ""))
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown recipe -> %d", w.Code)
	}

	// two attempts (auto-seeded v1 plus explicit v2), newest first
	w = httptest.NewRecorder()
	r.ServeHTTP(w, jsonReq(http.MethodGet, "/recipes/"+rec.ID+"/attempts", ""))
	if w.Code != http.StatusOK {
		t.Fatalf("list -> %d", w.Code)
	}
	var list ListAttemptsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("json: %v", err)
	}
	if list.Total != 2 || len(list.Items) != 2 || list.Items[0].Body != "v2" {
		t.Fatalf("list: %+v", list)
	}

	// ETag roundtrip, then invalidation by a new attempt
	w = httptest.NewRecorder()
	r.ServeHTTP(w, jsonReq(http.MethodGet, "/recipes/"+rec.ID+"/attempts", ""))
	etag := w.Header().Get("ETag")
	if !strings.HasPrefix(etag, `W/"attempts:`+rec.ID) {
		t.Fatalf("etag=%q", etag)
	}
	req := jsonReq(http.MethodGet, "/recipes/"+rec.ID+"/attempts", "")
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotModified {
		t.Fatalf("if-none-match -> %d", w.Code)
	}

	if _, err := attemptSvc.Create(context.Background(), "", rec.ID, services.AttemptInput{Body: "v3"}); err != nil {
		t.Fatalf("third attempt: %v", err)
	}
	req = jsonReq(http.MethodGet, "/recipes/"+rec.ID+"/attempts", "")
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("stale etag -> %d", w.Code)
	}
}
