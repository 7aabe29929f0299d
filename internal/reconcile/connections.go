package reconcile

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"catalog-sync/internal/model"
	"catalog-sync/internal/transform"
)

// ConnectionResult is the outcome of diffing source and target connections.
type ConnectionResult struct {
	// ToInsert holds transformed source rows to write to the target.
	ToInsert []model.Connection
	// FixIDs are target connection ids kept untouched this run.
	FixIDs model.IDSet
	// SafeIDs are target-only connections; always a subset of FixIDs.
	SafeIDs model.IDSet
	// Conflicts describe JDBC rows whose credentials differ between catalogs.
	Conflicts []string
	// Skipped describe source FTP rows not written because their id is kept.
	Skipped []string
	// Duplicates describe target-only JDBC rows dropped in favor of a source twin.
	Duplicates []string
}

// Connections diffs the full source and target connection sets.
//
// JDBC rows are matched by id. A matching pair whose user or password differs is a
// conflict: the target row is kept and the source row is not written. Target-only JDBC
// rows are kept unless a source row has the same URL and credentials. FTP rows are
// matched by url|user; target FTP rows without a source twin are kept.
func Connections(source, target []model.Connection, codec transform.Codec, now time.Time) ConnectionResult {
	res := ConnectionResult{
		FixIDs:  model.NewIDSet(),
		SafeIDs: model.NewIDSet(),
	}

	srcJDBC, srcFTP := splitByKind(source)
	tgtJDBC, tgtFTP := splitByKind(target)

	reconcileJDBC(&res, srcJDBC, tgtJDBC, codec, now)
	reconcileFTP(&res, srcFTP, tgtFTP, codec, now)

	// a kept target row of the other kind can hold the id of a JDBC source row
	kept := res.ToInsert[:0]
	for _, c := range res.ToInsert {
		if res.FixIDs.Has(c.ID) {
			res.Skipped = append(res.Skipped, fmt.Sprintf("connection %d: id is held by a kept target connection", c.ID))
			continue
		}
		kept = append(kept, c)
	}
	res.ToInsert = kept

	return res
}

func splitByKind(conns []model.Connection) (jdbc, ftp []model.Connection) {
	for _, c := range conns {
		if c.IsFTP() {
			ftp = append(ftp, c)
		} else {
			jdbc = append(jdbc, c)
		}
	}
	return jdbc, ftp
}

func reconcileJDBC(res *ConnectionResult, source, target []model.Connection, codec transform.Codec, now time.Time) {
	targetByID := make(map[int64]model.Connection, len(target))
	for _, t := range target {
		targetByID[t.ID] = t
	}

	sourceIDs := model.NewIDSet()
	for _, src := range source {
		sourceIDs.Add(src.ID)

		tgt, exists := targetByID[src.ID]
		var existing *model.Connection
		if exists {
			existing = &tgt
		}
		ready := transform.TransformConnection(src, existing, codec, now)

		if !exists {
			res.ToInsert = append(res.ToInsert, ready)
			continue
		}

		if ready.UserName == tgt.UserName && ready.Pass == tgt.Pass {
			res.ToInsert = append(res.ToInsert, ready)
			continue
		}

		res.FixIDs.Add(src.ID)
		res.Conflicts = append(res.Conflicts, fmt.Sprintf("JDBC connection %d: credentials differ between source and target", src.ID))
	}

	for _, tgt := range target {
		if sourceIDs.Has(tgt.ID) {
			continue
		}
		if twin, ok := findJDBCTwin(tgt, source, codec); ok {
			res.Duplicates = append(res.Duplicates, fmt.Sprintf("JDBC connection %d duplicates source connection %d", tgt.ID, twin))
			continue
		}
		res.SafeIDs.Add(tgt.ID)
		res.FixIDs.Add(tgt.ID)
	}
}

// findJDBCTwin returns the id of a source row with the same URL, user and password as tgt.
func findJDBCTwin(tgt model.Connection, source []model.Connection, codec transform.Codec) (int64, bool) {
	tgtURL := transform.NormalizeURL(tgt.URL)
	for _, src := range source {
		if transform.NormalizeURL(src.URL) != tgtURL {
			continue
		}
		if codec.Decrypt(src.UserName) != tgt.UserName {
			continue
		}
		if codec.Encrypt(codec.Decrypt(src.Pass)) != tgt.Pass {
			continue
		}
		return src.ID, true
	}
	return 0, false
}

func reconcileFTP(res *ConnectionResult, source, target []model.Connection, codec transform.Codec, now time.Time) {
	sourceKeys := make(map[string]struct{}, len(source))
	for _, src := range source {
		sourceKeys[ftpKey(src.URL, codec.Decrypt(src.UserName))] = struct{}{}
	}

	for _, tgt := range target {
		if _, ok := sourceKeys[ftpKey(tgt.URL, tgt.UserName)]; !ok {
			res.FixIDs.Add(tgt.ID)
		}
	}

	for _, src := range source {
		if res.FixIDs.Has(src.ID) {
			res.Skipped = append(res.Skipped, fmt.Sprintf("FTP connection %d: id is held by a kept target connection", src.ID))
			continue
		}
		res.ToInsert = append(res.ToInsert, transform.TransformConnection(src, nil, codec, now))
	}
}

func ftpKey(url, user sql.NullString) string {
	u, n := "null", "null"
	if url.Valid {
		u = strings.TrimSpace(url.String)
	}
	if user.Valid {
		n = strings.TrimSpace(user.String)
	}
	return u + "|" + n
}
