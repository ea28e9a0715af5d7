// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package flowapi

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sort"
)

// ListArchives returns the cold-storage segment index for the given
// archive type ("run" or "message"), ordered by start date ascending.
// The index endpoint does not guarantee an order, so the sort here is
// explicit.
func (client *Client) ListArchives(ctx context.Context, archiveType string) ([]Archive, error) {
	query := url.Values{}
	query.Set("archive_type", archiveType)

	segments, err := list[Archive](client, "/archives.json", query).Collect(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing archives: %w", err)
	}

	sort.Slice(segments, func(i, j int) bool {
		return segments[i].StartDate.Before(segments[j].StartDate.Time)
	})
	return segments, nil
}

// DownloadArchive streams the compressed payload of an archive
// segment from its pre-signed URL. The caller must close the reader.
// The download is not size-bounded; segment payloads are read
// incrementally by the archive package.
func (client *Client) DownloadArchive(ctx context.Context, segment Archive) (io.ReadCloser, error) {
	if segment.DownloadURL == "" {
		return nil, fmt.Errorf("flowapi: archive segment %s/%s has no download URL", segment.ArchiveType, segment.StartDate)
	}
	return client.download(ctx, segment.DownloadURL)
}
