package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimple_ReturnsHTML(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body>reach us at info@acme.io</body></html>"))
	}))
	defer server.Close()

	got, err := Simple(context.Background(), server.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, 200, got.StatusCode)
	assert.Contains(t, got.HTML, "info@acme.io")
	assert.Equal(t, DesktopUserAgent, gotUA)
}

func TestSimple_RejectsNonHTMLContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4"))
	}))
	defer server.Close()

	_, err := Simple(context.Background(), server.URL, nil)
	require.Error(t, err)
	var fetchErr *Error
	require.ErrorAs(t, err, &fetchErr)
	assert.Contains(t, fetchErr.Message, "non-HTML")
}

func TestSimple_PlainTextContentTypeIsAccepted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("<html><body>info@acme.io</body></html>"))
	}))
	defer server.Close()

	got, err := Simple(context.Background(), server.URL, nil)
	require.NoError(t, err)
	assert.Contains(t, got.HTML, "info@acme.io")
}

func TestSimple_MissingContentTypeIsAccepted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header()["Content-Type"] = nil
		_, _ = w.Write([]byte("<html></html>"))
	}))
	defer server.Close()

	got, err := Simple(context.Background(), server.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", got.HTML)
}

func TestSimple_NonSuccessStatusKeepsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("<html>Access denied</html>"))
	}))
	defer server.Close()

	got, err := Simple(context.Background(), server.URL, nil)
	require.Error(t, err)
	require.NotNil(t, got, "the body still feeds blocked detection")
	assert.Equal(t, 403, got.StatusCode)
	assert.Contains(t, got.HTML, "Access denied")
}

func TestSimple_InvalidURL(t *testing.T) {
	_, err := Simple(context.Background(), "not a url", nil)
	var fetchErr *Error
	require.ErrorAs(t, err, &fetchErr)
}

func TestDetectBlocked_StatusCodes(t *testing.T) {
	assert.True(t, DetectBlocked("", 403).IsBlocked)
	assert.True(t, DetectBlocked("", 429).IsBlocked)
	assert.True(t, DetectBlocked("down for maintenance", 503).IsBlocked)
	assert.False(t, DetectBlocked("<html>hello</html>", 200).IsBlocked)
}

func TestDetectBlocked_CloudflareChallenge(t *testing.T) {
	got := DetectBlocked(`<html><title>Just a moment...</title><div id="cf-challenge"></div></html>`, 503)
	assert.True(t, got.IsBlocked)
	assert.Contains(t, got.Reason, "Cloudflare")
	assert.NotEmpty(t, got.Suggestion)
}

func TestDetectBlocked_Captcha(t *testing.T) {
	recaptcha := DetectBlocked(`<div class="g-recaptcha" data-sitekey="x"></div>`, 200)
	hcaptcha := DetectBlocked(`<script src="https://hcaptcha.com/1/api.js"></script>`, 200)

	assert.True(t, recaptcha.IsBlocked)
	assert.True(t, hcaptcha.IsBlocked)
}

func TestDetectBlocked_LoginWall(t *testing.T) {
	got := DetectBlocked(`<p>Please log in to continue</p>`, 200)
	assert.True(t, got.IsBlocked)
	assert.Contains(t, got.Reason, "login wall")
}

func TestDetectPlatform(t *testing.T) {
	shopify := DetectPlatform(`<link href="https://cdn.shopify.com/s/files/theme.css">`)
	woo := DetectPlatform(`<script src="/wp-content/plugins/woocommerce/assets/js/cart.js"></script>`)
	wix := DetectPlatform(`<img src="https://static.wixstatic.com/media/logo.png">`)
	none := DetectPlatform(`<html><body>plain site</body></html>`)

	assert.Equal(t, PlatformShopify, shopify)
	assert.Equal(t, PlatformWooCommerce, woo)
	assert.Equal(t, PlatformWix, wix)
	assert.Equal(t, PlatformUnknown, none)
}

func TestIsStorefront(t *testing.T) {
	assert.True(t, IsStorefront(PlatformShopify))
	assert.True(t, IsStorefront(PlatformWooCommerce))
	assert.False(t, IsStorefront(PlatformWix))
	assert.False(t, IsStorefront(PlatformUnknown))
}
