package sync

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ferryhq/ferrytask/internal/model"
)

// BatchChecksum computes the transport-integrity token for a batch:
// "<id>-<operation>-<task_id>" per item in submission order, joined with
// "|", hex MD5 over the whole string. Not a security primitive; the
// server just echoes whether it saw the same bytes.
func BatchChecksum(items []model.SyncIntent) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = fmt.Sprintf("%s-%s-%s", item.ID, item.Operation, item.TaskID)
	}
	sum := md5.Sum([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
