/*******************************************************************************
*
* Copyright 2016 Stefan Majewsky <majewsky@gmx.net>
*
* This file is part of Holo.
*
* Holo is free software: you can redistribute it and/or modify it under the
* terms of the GNU General Public License as published by the Free Software
* Foundation, either version 3 of the License, or (at your option) any later
* version.
*
* Holo is distributed in the hope that it will be useful, but WITHOUT ANY
* WARRANTY; without even the implied warranty of MERCHANTABILITY or FITNESS FOR
* A PARTICULAR PURPOSE. See the GNU General Public License for more details.
*
* You should have received a copy of the GNU General Public License along with
* Holo. If not, see <http://www.gnu.org/licenses/>.
*
*******************************************************************************/

//Package transport opens byte streams for repository indices and package
//archives, dispatching on the URL scheme (bare paths and file://, http(s)://,
//s3://), and provides the tar.gz archive reader/writer used by the install
//engine.
package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

//Opener opens a read stream for one URL scheme.
type Opener func(ctx context.Context, rawURL string) (io.ReadCloser, error)

//openers is the scheme registry backing Open.
var openers = map[string]Opener{
	"":      openFile,
	"file":  openFile,
	"http":  openHTTP,
	"https": openHTTP,
	"s3":    openS3,
}

//Open opens rawURL for reading, dispatching on its URL scheme.
func Open(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("transport: %q: %w", rawURL, err)
	}
	opener, ok := openers[strings.ToLower(u.Scheme)]
	if !ok {
		return nil, fmt.Errorf("transport: unsupported scheme %q", u.Scheme)
	}
	return opener(ctx, rawURL)
}

func openFile(_ context.Context, rawURL string) (io.ReadCloser, error) {
	path := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Scheme == "file" {
		path = u.Path
	}
	return os.Open(path)
}

func openHTTP(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("transport: GET %s: %s", rawURL, resp.Status)
	}
	return resp.Body, nil
}

//s3Static holds optional static credentials set by ConfigureS3. When unset,
//openS3 falls back to the ambient AWS credential chain.
var s3Static struct {
	region    string
	accessKey string
	secretKey string
}

//ConfigureS3 installs static credentials for s3:// URLs, typically from the
//[s3] section of etc/apk/config.toml.
func ConfigureS3(region, accessKey, secretKey string) {
	s3Static.region = region
	s3Static.accessKey = accessKey
	s3Static.secretKey = secretKey
}

//openS3 fetches s3://bucket/key.
func openS3(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	bucket := u.Host
	key := strings.TrimPrefix(u.Path, "/")

	var loadOpts []func(*config.LoadOptions) error
	if s3Static.region != "" {
		loadOpts = append(loadOpts, config.WithRegion(s3Static.region))
	}
	if s3Static.accessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s3Static.accessKey, s3Static.secretKey, ""),
		))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("transport: loading AWS config: %w", err)
	}
	client := s3.NewFromConfig(cfg)
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("transport: s3 GetObject %s: %w", rawURL, err)
	}
	return out.Body, nil
}
