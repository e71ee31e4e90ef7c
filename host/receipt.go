package host

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/reglet-dev/zkguest/platform"
	"github.com/reglet-dev/zkguest/serde"
	"github.com/reglet-dev/zkguest/sha"
)

// Receipt is what the host observed of one halted run: the public journal
// and the Finalization Result summarizing it, plus the private stdout, the
// guest's log messages and the cycles charged.
type Receipt struct {
	Codec           string          `json:"codec"`
	Journal         []byte          `json:"journal"`
	Result          platform.Result `json:"result"`
	Stdout          []byte          `json:"stdout,omitempty"`
	StdoutTruncated bool            `json:"stdout_truncated,omitempty"`
	Logs            []LogEntry      `json:"logs,omitempty"`
	Cycles          uint64          `json:"cycles"`
}

// Verify recomputes the summary of the journal and compares it with the
// Finalization Result.
func (r *Receipt) Verify() error {
	if got := int(r.Result.Len()); got != len(r.Journal) {
		return fmt.Errorf("result length %d, journal holds %d bytes", got, len(r.Journal))
	}
	var want []byte
	if len(r.Journal) <= platform.DigestThresholdBytes {
		want = make([]byte, platform.DigestThresholdBytes)
		copy(want, r.Journal)
	} else {
		d := sha.Sum(r.Journal)
		want = d.Bytes()
	}
	if !bytes.Equal(want, r.Result.Bytes()) {
		return fmt.Errorf("result does not summarize the journal")
	}
	return nil
}

// ID identifies the receipt by the digest of its Finalization Result.
func (r *Receipt) ID() string {
	d := sha.Sum(platform.WordsToBytes(r.Result[:]))
	return hex.EncodeToString(d.Bytes())
}

// Decode reads the committed values, in commit order, into the pointers in
// vals.
func (r *Receipt) Decode(vals ...any) error {
	codec, err := serde.ByName(r.Codec)
	if err != nil {
		return err
	}
	d := serde.NewDeserializer(codec, platform.BytesToWords(r.Journal), len(r.Journal))
	for i, v := range vals {
		if err := d.Decode(v); err != nil {
			return fmt.Errorf("journal value %d: %w", i, err)
		}
	}
	return nil
}
