package document

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/akolanti/DocAssist/internal/config"
	"github.com/akolanti/DocAssist/internal/domain/commonModels"
	"github.com/google/uuid"
)

const (
	simulatedSteps       = 5
	simulatedFailAtStep  = 2
	simulatedFailureName = "fail"
)

// SimulatedUploader stands in for a real backend. Files whose name
// contains "fail" are rejected part way through.
type SimulatedUploader struct {
	Step time.Duration
}

func NewSimulatedUploader() *SimulatedUploader {
	return &SimulatedUploader{Step: config.SimulatedUploadStep}
}

func (u *SimulatedUploader) Upload(ctx context.Context, doc commonModels.Document, _ []byte, progress func(int)) (UploadResult, error) {
	failing := strings.Contains(strings.ToLower(doc.Name), simulatedFailureName)
	for step := 1; step <= simulatedSteps; step++ {
		select {
		case <-ctx.Done():
			return UploadResult{}, ctx.Err()
		case <-time.After(u.Step):
		}
		if failing && step == simulatedFailAtStep {
			return UploadResult{}, fmt.Errorf("backend rejected %s", doc.Name)
		}
		if progress != nil {
			progress(step * 100 / simulatedSteps)
		}
	}
	id := "backend-" + uuid.NewString()
	return UploadResult{BackendID: id, FileURL: "/files/" + id}, nil
}
