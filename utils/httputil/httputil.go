// Copyright (c) 2016-2019 Uber Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package httputil wraps net/http with retry, timeout, and status-code
// handling, used by the connection probe. The tracker client's executor
// sends its announces through its own net/http client instead.
package httputil

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/go-chi/chi"
)

// StatusError occurs when an HTTP request is successfully sent but receives
// a response with an unexpected status code.
type StatusError struct {
	Method       string
	URL          string
	Status       int
	ResponseDump string
}

// Error implements the error interface.
func (e StatusError) Error() string {
	return fmt.Sprintf(
		"%s request to %s received unexpected status %d: %s",
		e.Method, e.URL, e.Status, e.ResponseDump)
}

// IsNotFound returns whether err is a StatusError with a 404 status.
func IsNotFound(err error) bool {
	se, ok := err.(StatusError)
	return ok && se.Status == http.StatusNotFound
}

type sendOptions struct {
	body          io.Reader
	timeout       time.Duration
	acceptedCodes map[int]bool
	transport     http.RoundTripper
	retry         *retryOptions
	headers       map[string]string
}

type retryOptions struct {
	backoff backoff.BackOff
	codes   map[int]bool
}

func defaultSendOptions() *sendOptions {
	return &sendOptions{
		timeout:       60 * time.Second,
		acceptedCodes: map[int]bool{http.StatusOK: true},
	}
}

// SendOption configures a Send/Get/Post/Patch/Delete call.
type SendOption func(*sendOptions)

// SendBody sets the request body.
func SendBody(body io.Reader) SendOption {
	return func(o *sendOptions) { o.body = body }
}

// SendTimeout sets the client timeout, overriding the default of 60s.
func SendTimeout(timeout time.Duration) SendOption {
	return func(o *sendOptions) { o.timeout = timeout }
}

// SendAcceptedCodes adds additional status codes which should not be
// treated as errors, on top of 200.
func SendAcceptedCodes(codes ...int) SendOption {
	return func(o *sendOptions) {
		for _, c := range codes {
			o.acceptedCodes[c] = true
		}
	}
}

// SendTransport overrides the http.RoundTripper used to send the request.
// Primarily for tests.
func SendTransport(t http.RoundTripper) SendOption {
	return func(o *sendOptions) { o.transport = t }
}

// SendHeader adds a header to the request.
func SendHeader(key, value string) SendOption {
	return func(o *sendOptions) {
		if o.headers == nil {
			o.headers = make(map[string]string)
		}
		o.headers[key] = value
	}
}

// RetryOption configures retry behavior within SendRetry.
type RetryOption func(*retryOptions)

// RetryBackoff sets the backoff.BackOff policy used between retries.
func RetryBackoff(b backoff.BackOff) RetryOption {
	return func(o *retryOptions) { o.backoff = b }
}

// RetryCodes adds status codes, beyond the default 5XX range, which should
// trigger a retry.
func RetryCodes(codes ...int) RetryOption {
	return func(o *retryOptions) {
		for _, c := range codes {
			o.codes[c] = true
		}
	}
}

// SendRetry enables retrying of failed requests per the given RetryOptions.
func SendRetry(opts ...RetryOption) SendOption {
	return func(o *sendOptions) {
		r := &retryOptions{
			backoff: backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Second), 3),
			codes:   make(map[int]bool),
		}
		for _, opt := range opts {
			opt(r)
		}
		o.retry = r
	}
}

func (r *retryOptions) shouldRetry(status int) bool {
	if status >= 500 {
		return true
	}
	return r.codes[status]
}

// Get sends a GET request.
func Get(url string, opts ...SendOption) (*http.Response, error) {
	return Send(http.MethodGet, url, opts...)
}

// Post sends a POST request.
func Post(url string, opts ...SendOption) (*http.Response, error) {
	return Send(http.MethodPost, url, opts...)
}

// Patch sends a PATCH request.
func Patch(url string, opts ...SendOption) (*http.Response, error) {
	return Send(http.MethodPatch, url, opts...)
}

// Delete sends a DELETE request.
func Delete(url string, opts ...SendOption) (*http.Response, error) {
	return Send(http.MethodDelete, url, opts...)
}

// Send sends an HTTP request with method to url, configured by opts.
func Send(method, url string, opts ...SendOption) (*http.Response, error) {
	o := defaultSendOptions()
	for _, opt := range opts {
		opt(o)
	}

	client := &http.Client{
		Timeout:   o.timeout,
		Transport: o.transport,
	}

	var resp *http.Response
	var err error
	if o.retry == nil {
		resp, err = send(client, method, url, o)
	} else {
		err = backoff.Retry(func() error {
			resp, err = send(client, method, url, o)
			return err
		}, o.retry.backoff)
	}
	return resp, err
}

func send(client *http.Client, method, url string, o *sendOptions) (*http.Response, error) {
	req, err := http.NewRequest(method, url, o.body)
	if err != nil {
		return nil, fmt.Errorf("new request: %s", err)
	}
	for k, v := range o.headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if !o.acceptedCodes[resp.StatusCode] {
		defer resp.Body.Close()
		dump, _ := io.ReadAll(resp.Body)
		err := StatusError{
			Method:       method,
			URL:          url,
			Status:       resp.StatusCode,
			ResponseDump: string(dump),
		}
		if o.retry != nil && o.retry.shouldRetry(resp.StatusCode) {
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}
	return resp, nil
}

// PollAccepted polls url with GET until it returns a status other than 202,
// using b to space out the polls. Returns a StatusError if the terminal
// status is not 200.
func PollAccepted(url string, b backoff.BackOff, opts ...SendOption) (*http.Response, error) {
	var resp *http.Response
	err := backoff.Retry(func() error {
		r, err := Get(url, append(opts, SendAcceptedCodes(http.StatusAccepted))...)
		if err != nil {
			return err
		}
		if r.StatusCode == http.StatusAccepted {
			r.Body.Close()
			return errors.New("still processing")
		}
		resp = r
		return nil
	}, b)
	if err != nil {
		if resp != nil {
			return resp, nil
		}
		return nil, err
	}
	return resp, nil
}

// GetQueryArg returns the value of the query parameter arg from r, or
// defaultVal if not present.
func GetQueryArg(r *http.Request, arg, defaultVal string) string {
	v := r.URL.Query().Get(arg)
	if v == "" {
		return defaultVal
	}
	return v
}

// ParseParam extracts and unescapes the named chi URL parameter from r.
func ParseParam(r *http.Request, name string) (string, error) {
	v := chi.URLParam(r, name)
	if v == "" {
		return "", fmt.Errorf("param %q not found", name)
	}
	unescaped, err := url.QueryUnescape(v)
	if err != nil {
		return "", fmt.Errorf("unescape param %q: %s", name, err)
	}
	return unescaped, nil
}
