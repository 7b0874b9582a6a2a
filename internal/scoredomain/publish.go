package scoredomain

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/ocx/trustgraph/internal/bundle"
	"github.com/ocx/trustgraph/internal/credential"
	"github.com/ocx/trustgraph/internal/metrics"
	"github.com/ocx/trustgraph/internal/rpcclients"
	"github.com/ocx/trustgraph/internal/rpcclients/pb"
	"github.com/ocx/trustgraph/pkg/trustvector"
)

// runEigenTrust seeds gt from pt, invokes basic_compute, and fetches the
// resulting global trust vector filtered to known peer IDs. Mirrors
// Domain::run_et.
func runEigenTrust(ctx context.Context, tv pb.TrustVectorClient, compute pb.ComputeClient, ltID, ptID, gtID string, didToID map[string]uint32, alpha *float64) (trustvector.Vector, error) {
	if err := rpcclients.RunBasicCompute(ctx, tv, compute, ltID, ptID, gtID, alpha); err != nil {
		return nil, fmt.Errorf("scoredomain: run eigentrust: %w", err)
	}
	gt, err := rpcclients.FetchGlobalTrust(ctx, tv, gtID, didToID)
	if err != nil {
		return nil, fmt.Errorf("scoredomain: run eigentrust: %w", err)
	}
	return trustvector.Vector(gt), nil
}

// uploadLT pushes one local-trust delta batch to the compute engine,
// keyed by the numeric peer IDs (not DIDs) as the original does.
func (d *Domain) uploadLT(ctx context.Context, tm pb.TrustMatrixClient, timestamp uint64, lt trustvector.Matrix) error {
	entries := make([]pb.TrustMatrixEntry, 0, len(lt))
	for edge, value := range lt {
		entries = append(entries, pb.TrustMatrixEntry{
			Truster: strconv.FormatUint(uint64(edge.Truster), 10),
			Trustee: strconv.FormatUint(uint64(edge.Trustee), 10),
			Value:   value,
		})
	}
	d.log.Info("copied LT entries", "count", len(entries), "ts", timestamp, "domain", d.ID)
	if err := rpcclients.UploadLocalTrust(ctx, tm, d.LtID, timestamp, entries); err != nil {
		return fmt.Errorf("scoredomain: upload lt: %w", err)
	}
	return nil
}

// computeSnapScores recomputes d.snapScores from d.snapStatuses and the
// current d.gt. Preserves the original's assignment-not-accumulation of
// score_value per opinion — see spec.md §9 Open Questions; this is a
// known quirk carried over intentionally, not a bug to fix here.
func (d *Domain) computeSnapScores() {
	d.snapScores = make(map[string]ScorePair, len(d.snapStatuses))
	for snapID, opinions := range d.snapStatuses {
		var value, confidence float64
		for issuerDID, opinion := range opinions {
			id, ok := d.peerDIDToID[issuerDID]
			if !ok {
				d.log.Warn("unknown issuer", "did", issuerDID, "domain", d.ID)
				continue
			}
			weight := d.gt[id]
			if weight > 0 {
				value = opinion * weight
				confidence += weight
			}
		}
		if confidence != 0 {
			value /= confidence
		}
		d.snapScores[snapID] = ScorePair{Value: value, Confidence: confidence}
	}
}

// publishScores builds the peer_scores.jsonl / snap_scores.jsonl /
// MANIFEST.json bundle for tsWindow, writes it as a zip, and uploads it
// if cfg.Uploader is configured. Mirrors Domain::publish_scores.
func (d *Domain) publishScores(ctx context.Context, tsWindow uint64, issuerID string, uploader *bundle.Uploader, mx *metrics.Metrics) error {
	issuanceDate := time.UnixMilli(int64(tsWindow)).UTC().Format(time.RFC3339)

	_, manifestRaw, err := credential.NewManifest(issuerID, issuanceDate, nil)
	if err != nil {
		return fmt.Errorf("scoredomain: publish scores: manifest: %w", err)
	}

	var peerBuf bytes.Buffer
	for peerID, value := range d.gt {
		did, ok := d.peerIDToDID[peerID]
		if !ok {
			continue
		}
		_, raw, err := credential.NewTrustScoreCredential(issuerID, did, issuanceDate, credential.TrustScoreTypeEigenTrust, value, nil)
		if err != nil {
			return fmt.Errorf("scoredomain: publish scores: peer vc: %w", err)
		}
		peerBuf.Write(raw)
		peerBuf.WriteByte('\n')
	}

	d.computeSnapScores()

	snapIDs := make([]string, 0, len(d.snapScores))
	for id := range d.snapScores {
		snapIDs = append(snapIDs, id)
	}
	sort.Strings(snapIDs)

	var snapBuf bytes.Buffer
	for _, snapID := range snapIDs {
		score := d.snapScores[snapID]
		confidence := score.Confidence
		_, raw, err := credential.NewTrustScoreCredential(issuerID, snapID, issuanceDate, credential.TrustScoreTypeIssuerTrustWeightedAverage, score.Value, &confidence)
		if err != nil {
			return fmt.Errorf("scoredomain: publish scores: snap vc: %w", err)
		}
		snapBuf.Write(raw)
		snapBuf.WriteByte('\n')
	}

	archive, err := bundle.Build(bundle.Archive{
		PeerScores: peerBuf.Bytes(),
		SnapScores: snapBuf.Bytes(),
		Manifest:   manifestRaw,
	})
	if err != nil {
		return fmt.Errorf("scoredomain: publish scores: build archive: %w", err)
	}

	localPath := fmt.Sprintf("domain-%d-%d.zip", d.ID, tsWindow)
	if err := os.WriteFile(localPath, archive, 0o644); err != nil {
		return fmt.Errorf("scoredomain: publish scores: write local archive: %w", err)
	}

	destination := "local"
	if uploader != nil {
		loc, err := uploader.Upload(ctx, tsWindow, archive)
		if err != nil {
			if mx != nil {
				mx.BundleUploadFailures.WithLabelValues(strconv.FormatUint(uint64(d.ID), 10)).Inc()
			}
			return fmt.Errorf("scoredomain: publish scores: upload: %w", err)
		}
		destination = "s3"
		d.log.Info("uploaded to S3", "location", loc, "domain", d.ID)
	}
	if mx != nil {
		mx.BundlesPublished.WithLabelValues(strconv.FormatUint(uint64(d.ID), 10), destination).Inc()
		mx.LastComputeTs.WithLabelValues(strconv.FormatUint(uint64(d.ID), 10)).Set(float64(tsWindow))
	}
	return nil
}
