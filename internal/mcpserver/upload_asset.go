package mcpserver

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
)

const maxAssetSize = 10 << 20 // 10 MB

// assetTypes maps the allowed file extensions to their sniffed MIME type.
var assetTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".pdf":  "application/pdf",
}

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

type uploadResult struct {
	Filename      string `json:"filename"`
	URL           string `json:"url"`
	MarkdownImage string `json:"markdownImage"`
}

// asset is a downloaded or decoded file waiting to be stored.
type asset struct {
	data []byte
	ext  string // guessed from the MIME type, may be empty
}

func (s *Server) uploadAsset(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawURL, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var a asset
	if strings.HasPrefix(rawURL, "data:") {
		a, err = fromDataURI(rawURL)
	} else {
		a, err = download(ctx, rawURL)
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	name := req.GetString("filename", "")
	if name == "" {
		name = nameFromURL(rawURL, a.ext)
	}
	name = cleanName(name)

	if err := a.check(strings.ToLower(filepath.Ext(name))); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	stored, _, err := s.svc.CopyAttachment(ctx, name, bytes.NewReader(a.data))
	if err != nil {
		return toolError(err), nil
	}

	name = filepath.Base(stored)
	link := "/api/attachments/" + name
	out, _ := json.Marshal(uploadResult{
		Filename:      name,
		URL:           link,
		MarkdownImage: fmt.Sprintf("![%s](%s)", name, link),
	})
	return mcp.NewToolResultText(string(out)), nil
}

// check verifies size, extension and that the content looks like the extension claims.
func (a asset) check(ext string) error {
	if len(a.data) > maxAssetSize {
		return fmt.Errorf("file too large: %d bytes (max %d)", len(a.data), maxAssetSize)
	}
	want, ok := assetTypes[ext]
	if !ok {
		return fmt.Errorf("unsupported file extension: %q (allowed: png, jpg, jpeg, gif, webp, svg, pdf)", ext)
	}
	if ext == ".svg" {
		head := a.data[:min(len(a.data), 1024)]
		if !bytes.Contains(head, []byte("<svg")) {
			return fmt.Errorf("content does not appear to be an SVG")
		}
		return nil
	}
	got, _, _ := strings.Cut(http.DetectContentType(a.data), ";")
	if got != want {
		return fmt.Errorf("content does not match extension %s (detected: %s)", ext, got)
	}
	return nil
}

func extFor(mime string) string {
	mime, _, _ = strings.Cut(mime, ";")
	mime = strings.TrimSpace(mime)
	if mime == "image/jpeg" {
		return ".jpg"
	}
	for ext, m := range assetTypes {
		if m == mime {
			return ext
		}
	}
	return ""
}

// fromDataURI decodes a data:<mime>;base64,<payload> URI.
func fromDataURI(uri string) (asset, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return asset{}, fmt.Errorf("invalid data URI: missing comma separator")
	}
	mime, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return asset{}, fmt.Errorf("only base64 data URIs are supported")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		if data, err = base64.RawStdEncoding.DecodeString(payload); err != nil {
			return asset{}, fmt.Errorf("invalid base64 data: %w", err)
		}
	}
	ext := extFor(mime)
	if ext == "" {
		return asset{}, fmt.Errorf("unsupported MIME type in data URI: %s", mime)
	}
	return asset{data: data, ext: ext}, nil
}

// download fetches an http(s) URL, refusing loopback and metadata hosts.
func download(ctx context.Context, rawURL string) (asset, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return asset{}, fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return asset{}, fmt.Errorf("unsupported scheme: %s (only http/https)", u.Scheme)
	}
	if err := allowedHost(u.Hostname()); err != nil {
		return asset{}, err
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
		CheckRedirect: func(r *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return fmt.Errorf("too many redirects (max 5)")
			}
			return allowedHost(r.URL.Hostname())
		},
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return asset{}, fmt.Errorf("invalid URL: %w", err)
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return asset{}, fmt.Errorf("download failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return asset{}, fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetSize+1))
	if err != nil {
		return asset{}, fmt.Errorf("read body failed: %w", err)
	}
	return asset{data: data, ext: extFor(resp.Header.Get("Content-Type"))}, nil
}

var metadataIP = net.ParseIP("169.254.169.254")

func allowedHost(host string) error {
	if host == "metadata.google.internal" {
		return fmt.Errorf("blocked host: %s", host)
	}
	ip := net.ParseIP(host)
	if ip == nil {
		ips, err := net.LookupIP(host)
		if err != nil || len(ips) == 0 {
			return nil //nolint:nilerr // DNS failures surface from the client
		}
		ip = ips[0]
	}
	if ip.IsLoopback() {
		return fmt.Errorf("blocked host: loopback address %s", host)
	}
	if ip.Equal(metadataIP) {
		return fmt.Errorf("blocked host: cloud metadata address %s", host)
	}
	return nil
}

// nameFromURL uses the last path segment of rawURL, or a random name.
func nameFromURL(rawURL, ext string) string {
	if !strings.HasPrefix(rawURL, "data:") {
		if u, err := url.Parse(rawURL); err == nil {
			if base := path.Base(u.Path); strings.Contains(base, ".") && base != "." {
				return base
			}
		}
	}
	if ext == "" {
		ext = ".bin"
	}
	return uuid.NewString() + ext
}

func cleanName(name string) string {
	name = unsafeNameChars.ReplaceAllString(filepath.Base(name), "_")
	if name == "" || name == "." || strings.HasPrefix(name, ".") {
		name = uuid.NewString() + name
	}
	return name
}
