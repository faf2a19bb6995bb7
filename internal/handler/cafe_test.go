package handler_test

import (
	"fmt"
	"net/http"
	"net/url"
	"testing"
)

func cafeFormValues(csrf string) url.Values {
	return url.Values{
		"name":        {"Test Cafe"},
		"description": {"Test description"},
		"url":         {"http://testcafe.com/"},
		"address":     {"500 Sansome St"},
		"city_code":   {"sf"},
		"image_url":   {"http://testcafeimg.com/"},
		"csrf_token":  {csrf},
	}
}

func TestListOrderedByName(t *testing.T) {
	ev := newEnv(t)
	ev.addCafe(t, "Zeitgeist")
	ev.addCafe(t, "Alpha Roast")
	ev.addCafe(t, "Mudhouse")

	rec := ev.get("/cafes", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec.Body)
	cafes, _ := body["cafes"].([]any)
	if len(cafes) != 3 {
		t.Fatalf("len(cafes) = %d, want 3", len(cafes))
	}
	want := []string{"Alpha Roast", "Mudhouse", "Zeitgeist"}
	for i, raw := range cafes {
		got := raw.(map[string]any)["name"]
		if got != want[i] {
			t.Fatalf("cafes[%d].name = %v, want %q", i, got, want[i])
		}
	}
}

func TestDetail(t *testing.T) {
	ev := newEnv(t)
	cafe := ev.addCafe(t, "Test Cafe")

	rec := ev.get(fmt.Sprintf("/cafes/%d", cafe.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	got, _ := decodeBody(t, rec.Body)["cafe"].(map[string]any)
	if got["name"] != "Test Cafe" {
		t.Fatalf("name = %v", got["name"])
	}
	if got["url"] != "http://testcafe.com/" {
		t.Fatalf("url = %v", got["url"])
	}
	if got["city_state"] != "San Francisco, CA" {
		t.Fatalf("city_state = %v, want %q", got["city_state"], "San Francisco, CA")
	}
}

func TestDetailNotFound(t *testing.T) {
	ev := newEnv(t)
	rec := ev.get("/cafes/999", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestAddCafeRequiresAdmin(t *testing.T) {
	ev := newEnv(t)
	user := ev.addUser(t, "plain", false)

	// Anonymous: redirected to login, nothing persisted.
	ck, csrf := ev.anonSession(t)
	rec := ev.postForm("/cafes/add", cafeFormValues(csrf), ck)
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/login" {
		t.Fatalf("anon add: status=%d loc=%q, want 302 /login", rec.Code, rec.Header().Get("Location"))
	}

	// Logged-in non-admin: sent back to the list, nothing persisted.
	ck, csrf = ev.loginAs(t, user)
	rec = ev.postForm("/cafes/add", cafeFormValues(csrf), ck)
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/cafes" {
		t.Fatalf("non-admin add: status=%d loc=%q, want 302 /cafes", rec.Code, rec.Header().Get("Location"))
	}
	listing := ev.get("/cafes", ck)
	if !hasFlash(decodeBody(t, listing.Body), "You are not an admin.") {
		t.Fatal("missing not-an-admin flash")
	}

	if ev.cafes.count() != 0 {
		t.Fatal("unauthorized attempt persisted a cafe")
	}
	ev.fetcher.assertNone(t)
}

func TestAdminAddCafe(t *testing.T) {
	ev := newEnv(t)
	admin := ev.addUser(t, "admin", true)
	ck, csrf := ev.loginAs(t, admin)

	rec := ev.postForm("/cafes/add", cafeFormValues(csrf), ck)
	if rec.Code != http.StatusFound {
		t.Fatalf("add status = %d, want 302; body: %s", rec.Code, rec.Body.String())
	}
	loc := rec.Header().Get("Location")
	if loc != "/cafes/1" {
		t.Fatalf("redirect = %q, want /cafes/1", loc)
	}

	detail := ev.get(loc, ck)
	body := decodeBody(t, detail.Body)
	got, _ := body["cafe"].(map[string]any)
	if got["name"] != "Test Cafe" {
		t.Fatalf("detail name = %v", got["name"])
	}
	if !hasFlash(body, "Test Cafe added") {
		t.Fatal("missing added flash")
	}

	// The map snapshot fetch fires with the cafe id and resolved city.
	call := ev.fetcher.wait(t)
	if call.ID != 1 || call.Address != "500 Sansome St" || call.City != "San Francisco" || call.State != "CA" {
		t.Fatalf("fetch call = %+v", call)
	}
}

func TestAddCafeValidation(t *testing.T) {
	ev := newEnv(t)
	admin := ev.addUser(t, "admin", true)
	ck, csrf := ev.loginAs(t, admin)

	form := cafeFormValues(csrf)
	form.Set("name", "")
	form.Set("url", "not a url")
	form.Set("city_code", "nowhere")
	rec := ev.postForm("/cafes/add", form, ck)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	errs, _ := decodeBody(t, rec.Body)["errors"].(map[string]any)
	for _, field := range []string{"name", "url", "city_code"} {
		if errs[field] == nil {
			t.Fatalf("missing field error for %q in %v", field, errs)
		}
	}
	if ev.cafes.count() != 0 {
		t.Fatal("invalid form persisted a cafe")
	}
	ev.fetcher.assertNone(t)
}

func TestAddCafeOptionalFieldsMayBeEmpty(t *testing.T) {
	ev := newEnv(t)
	admin := ev.addUser(t, "admin", true)
	ck, csrf := ev.loginAs(t, admin)

	form := cafeFormValues(csrf)
	form.Set("description", "")
	form.Set("url", "")
	form.Set("image_url", "")
	rec := ev.postForm("/cafes/add", form, ck)
	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302; body: %s", rec.Code, rec.Body.String())
	}

	detail := ev.get(rec.Header().Get("Location"), ck)
	got, _ := decodeBody(t, detail.Body)["cafe"].(map[string]any)
	if got["description"] != "" || got["url"] != "" {
		t.Fatalf("optional fields = %v / %v, want empty", got["description"], got["url"])
	}
	if got["image_url"] != "/static/images/default-cafe.jpg" {
		t.Fatalf("image_url = %v, want default", got["image_url"])
	}
}

func TestAddFormListsCityChoices(t *testing.T) {
	ev := newEnv(t)
	admin := ev.addUser(t, "admin", true)
	ck, _ := ev.loginAs(t, admin)

	rec := ev.get("/cafes/add", ck)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	cities, _ := decodeBody(t, rec.Body)["cities"].([]any)
	if len(cities) != 1 {
		t.Fatalf("len(cities) = %d, want 1", len(cities))
	}
	first := cities[0].(map[string]any)
	if first["code"] != "sf" || first["name"] != "San Francisco" {
		t.Fatalf("city choice = %v", first)
	}
}

func TestEditCafe(t *testing.T) {
	ev := newEnv(t)
	admin := ev.addUser(t, "admin", true)
	cafe := ev.addCafe(t, "Test Cafe")
	ck, csrf := ev.loginAs(t, admin)

	form := url.Values{
		"name":        {"new-name"},
		"description": {"new-description"},
		"url":         {"http://new-image.com/"},
		"address":     {"500 Sansome St"},
		"city_code":   {"sf"},
		"image_url":   {"http://new-image.com/"},
		"csrf_token":  {csrf},
	}
	rec := ev.postForm(fmt.Sprintf("/cafes/%d/edit", cafe.ID), form, ck)
	if rec.Code != http.StatusFound {
		t.Fatalf("edit status = %d, want 302; body: %s", rec.Code, rec.Body.String())
	}

	detail := ev.get(fmt.Sprintf("/cafes/%d", cafe.ID), ck)
	body := decodeBody(t, detail.Body)
	got, _ := body["cafe"].(map[string]any)
	if got["name"] != "new-name" || got["description"] != "new-description" {
		t.Fatalf("edited cafe = %v", got)
	}
	if !hasFlash(body, "new-name edited") {
		t.Fatal("missing edited flash")
	}

	// Edits never re-fetch the map image.
	ev.fetcher.assertNone(t)
}

func TestEditFormShowsCurrentData(t *testing.T) {
	ev := newEnv(t)
	admin := ev.addUser(t, "admin", true)
	cafe := ev.addCafe(t, "Test Cafe")
	ck, _ := ev.loginAs(t, admin)

	rec := ev.get(fmt.Sprintf("/cafes/%d/edit", cafe.ID), ck)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	got, _ := decodeBody(t, rec.Body)["cafe"].(map[string]any)
	if got["description"] != "Test description" {
		t.Fatalf("description = %v", got["description"])
	}
}

func TestEditUnknownCafe(t *testing.T) {
	ev := newEnv(t)
	admin := ev.addUser(t, "admin", true)
	ck, csrf := ev.loginAs(t, admin)

	rec := ev.postForm("/cafes/999/edit", cafeFormValues(csrf), ck)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
