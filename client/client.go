// Package client reads from a running fedharvest status server.
package client

import (
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"time"

	"github.com/antonholmquist/jason"
)

// Exported errors
var (
	ErrNotFound      = errors.New("Not Found on server")
	ErrNotAuthorized = errors.New("Access Denied")
)

// A Connection represents a connection with a status server.
// It can be shared between multiple goroutines.
type Connection struct {
	// The server this connection is to, e.g. "http://localhost:14001"
	HostURL string
	Token   string

	client *http.Client
}

// Record returns the stored record for pid.
func (c *Connection) Record(pid string) (*jason.Object, error) {
	return c.doJasonGet("/record/" + url.PathEscape(pid))
}

// DublinCore returns the dublin_core document stored for pid.
func (c *Connection) DublinCore(pid string) ([]byte, error) {
	body, err := c.get("/record/" + url.PathEscape(pid) + "/dc")
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return ioutil.ReadAll(body)
}

// Report returns the report of the most recent run.
func (c *Connection) Report() (*jason.Object, error) {
	return c.doJasonGet("/report")
}

// Remediation returns the results of the most recent run needing attention.
func (c *Connection) Remediation() ([]*jason.Object, error) {
	body, err := c.get("/report/remediation")
	if err != nil {
		return nil, err
	}
	defer body.Close()
	v, err := jason.NewValueFromReader(body)
	if err != nil {
		return nil, err
	}
	return objectArray(v)
}

// objectArray returns the elements of a JSON array of objects.
func objectArray(v *jason.Value) ([]*jason.Object, error) {
	elems, err := v.Array()
	if err != nil {
		return nil, err
	}
	result := make([]*jason.Object, 0, len(elems))
	for _, e := range elems {
		obj, err := e.Object()
		if err != nil {
			return nil, err
		}
		result = append(result, obj)
	}
	return result, nil
}

func (c *Connection) doJasonGet(path string) (*jason.Object, error) {
	body, err := c.get(path)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return jason.NewObjectFromReader(body)
}

// get returns the body of a successful GET of path. The caller must close
// it.
func (c *Connection) get(path string) (io.ReadCloser, error) {
	req, err := http.NewRequest("GET", c.HostURL+path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	switch resp.StatusCode {
	case 200:
		return resp.Body, nil
	case 404:
		err = ErrNotFound
	case 401:
		err = ErrNotAuthorized
	default:
		err = fmt.Errorf("Received status %d from %s", resp.StatusCode, c.HostURL)
	}
	resp.Body.Close()
	return nil, err
}

func (c *Connection) do(req *http.Request) (*http.Response, error) {
	if c.Token != "" {
		req.Header.Add("X-Api-Key", c.Token)
	}
	if c.client == nil {
		c.client = &http.Client{
			Timeout: time.Minute, // arbitrary
		}
	}
	return c.client.Do(req)
}
