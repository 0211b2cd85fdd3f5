package loader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lviewgo/recorder/internal/memory"
	"github.com/lviewgo/recorder/pkg/core"
)

// Capture copies the primary and unit info regions of every object into a
// dump that memory.SnapshotReader can replay. Objects whose primary read
// fails are left out; a failed unit info read keeps the primary region.
func (l *Loader) Capture(ctx context.Context, r memory.Reader, objects []core.Address) (memory.Dump, error) {
	d := memory.Dump{CapturedAt: time.Now().UTC()}

	var errs []error
	for _, base := range objects {
		primary := make([]byte, l.layout.PrimarySize)
		if err := memory.Read(ctx, r, base, primary); err != nil {
			if ctx.Err() != nil {
				return d, ctx.Err()
			}
			errs = append(errs, err)
			continue
		}
		d.Objects = append(d.Objects, base)
		d.Regions = append(d.Regions, memory.Region{Base: base, Data: primary})

		fr := fieldReader{buf: primary}
		unitInfo := fr.pointer("unitInfoPtr", l.layout.UnitInfoPtr, l.layout.PointerSize)
		if unitInfo == 0 {
			continue
		}
		deep := make([]byte, l.layout.DeepSize)
		if err := memory.Read(ctx, r, unitInfo, deep); err != nil {
			errs = append(errs, err)
			continue
		}
		d.Regions = append(d.Regions, memory.Region{Base: unitInfo, Data: deep})
	}

	if len(d.Objects) == 0 && len(errs) > 0 {
		return d, fmt.Errorf("no object could be captured: %w", errors.Join(errs...))
	}
	return d, nil
}
