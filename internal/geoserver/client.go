package geoserver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// All layers live under one well-known workspace and datastore
	// namespace on the backend.
	workspace = "mapstack"

	hostAddress = "http://%s:%s%s"

	featureTypeEndpoint   = "/geoserver/rest/workspaces/" + workspace + "/datastores/" + workspace + "/featuretypes/"
	coverageStoreEndpoint = "/geoserver/rest/workspaces/" + workspace + "/coveragestores"
	coverageEndpoint      = "/geoserver/rest/workspaces/" + workspace + "/coveragestores/%s/coverages"
	capabilitiesPath      = "/geoserver/" + workspace + "/wfs?service=wfs&version=2.0.0&request=GetCapabilities"

	deleteFeatureTypeEndpoint   = "/geoserver/rest/workspaces/" + workspace + "/datastores/" + workspace + "/featuretypes/%s?recurse=true"
	deleteCoverageStoreEndpoint = "/geoserver/rest/workspaces/" + workspace + "/coveragestores/%s?recurse=true"
)

// ProvisioningError reports a backend response other than the expected one.
// GeoServer typically returns no usable body, so the HTTP status is all
// there is to go on.
type ProvisioningError struct {
	Operation string
	Status    int
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("%s: the backend returned a non-OK response code: %d", e.Operation, e.Status)
}

// CoverageMetadata carries the spatial parameters for registering a
// coverage layer.
type CoverageMetadata struct {
	CRS      string
	EPSGCode int
	MinX     float64
	MaxX     float64
	MinY     float64
	MaxY     float64
}

// Client issues provisioning calls against a GeoServer instance. Creation
// calls require a 201 from the backend; deletion calls treat 404 as already
// removed so reaping can be retried safely.
type Client interface {
	CreateFeatureType(ctx context.Context, tableName, nativeCRS string) error
	CreateCoverageStore(ctx context.Context, storeName, filePath string) error
	CreateCoverage(ctx context.Context, storeName string, meta CoverageMetadata) error
	DeleteFeatureType(ctx context.Context, layer string) error
	DeleteCoverageStore(ctx context.Context, storeName string) error

	Host() string
	Port() string
	CapabilitiesURL() string
}

type client struct {
	host     string
	port     string
	username string
	password string
	http     *http.Client
}

// Config carries the connection settings for one GeoServer instance.
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
}

func NewClient(cfg Config) Client {
	return &client{
		host:     cfg.Host,
		port:     cfg.Port,
		username: cfg.Username,
		password: cfg.Password,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *client) Host() string { return c.host }
func (c *client) Port() string { return c.port }

// CapabilitiesURL returns the WFS capabilities endpoint for the workspace.
// It is derived from the configured host and port, never user-supplied.
func (c *client) CapabilitiesURL() string {
	return fmt.Sprintf(hostAddress, c.host, c.port, capabilitiesPath)
}

// CreateFeatureType registers a Postgres table as a new feature layer.
func (c *client) CreateFeatureType(ctx context.Context, tableName, nativeCRS string) error {
	body := fmt.Sprintf(featureTypeTemplate, tableName, tableName, tableName, nativeCRS, "EPSG:4326")
	return c.post(ctx, "create feature type", featureTypeEndpoint, body)
}

// CreateCoverageStore registers a coverage data store pointing at a staged
// raster file.
func (c *client) CreateCoverageStore(ctx context.Context, storeName, filePath string) error {
	body := fmt.Sprintf(coverageStoreTemplate, storeName, workspace, filePath)
	return c.post(ctx, "create coverage store", coverageStoreEndpoint, body)
}

// CreateCoverage registers the coverage in a data store as a layer,
// parameterized by the resource's extents and reference system.
func (c *client) CreateCoverage(ctx context.Context, storeName string, meta CoverageMetadata) error {
	body := fmt.Sprintf(coverageTemplate,
		storeName, storeName, workspace, storeName,
		meta.CRS, meta.EPSGCode,
		meta.MinX, meta.MaxX, meta.MinY, meta.MaxY, meta.EPSGCode,
		workspace, storeName, meta.EPSGCode, meta.EPSGCode)
	return c.post(ctx, "create coverage", fmt.Sprintf(coverageEndpoint, storeName), body)
}

func (c *client) DeleteFeatureType(ctx context.Context, layer string) error {
	return c.delete(ctx, "delete feature type", fmt.Sprintf(deleteFeatureTypeEndpoint, layer))
}

func (c *client) DeleteCoverageStore(ctx context.Context, storeName string) error {
	return c.delete(ctx, "delete coverage store", fmt.Sprintf(deleteCoverageStoreEndpoint, storeName))
}

func (c *client) post(ctx context.Context, operation, endpoint, body string) error {
	status, err := c.do(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	if status != http.StatusCreated {
		return &ProvisioningError{Operation: operation, Status: status}
	}
	return nil
}

func (c *client) delete(ctx context.Context, operation, endpoint string) error {
	status, err := c.do(ctx, http.MethodDelete, endpoint, "")
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	// 404 means a previous sweep already removed the resource.
	if status != http.StatusOK && status != http.StatusNotFound {
		return &ProvisioningError{Operation: operation, Status: status}
	}
	return nil
}

func (c *client) do(ctx context.Context, method, endpoint, body string) (int, error) {
	url := fmt.Sprintf(hostAddress, c.host, c.port, endpoint)

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, err
	}
	req.SetBasicAuth(c.username, c.password)
	if body != "" {
		req.Header.Set("Content-Type", "application/xml")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	// Drain so the connection can be reused.
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}
