package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Export is the root JSON structure of a session file
type Export struct {
	RecorderVersion  string   `json:"recorderVersion"`
	GameVersion      string   `json:"gameVersion"`
	LayoutName       string   `json:"layoutName"`
	KindTableVersion string   `json:"kindTableVersion"`
	StartTime        string   `json:"startTime"`
	CaptureDelay     float64  `json:"captureDelay"`
	EndFrame         uint     `json:"endFrame"`
	Entities         []Entity `json:"entities"`
	Frames           []Frame  `json:"frames"`
}

// Entity is one object address with its per-frame samples.
// Each position is [frame, gameTime, x, y, z, health, alive, visible, deep].
type Entity struct {
	Address    uint64   `json:"address"`
	Name       string   `json:"name"`
	Label      string   `json:"label,omitempty"`
	TypeCode   uint32   `json:"typeCode"`
	Categories []string `json:"categories"`
	Team       string   `json:"team"`
	StartFrame uint     `json:"startFrame"`
	Positions  [][]any  `json:"positions"`
}

// Frame is the scan summary of one frame
type Frame struct {
	Frame      uint           `json:"frame"`
	GameTime   float32        `json:"gameTime"`
	Time       string         `json:"time"`
	DurationMs float64        `json:"durationMs"`
	Listed     int            `json:"listed"`
	Decoded    int            `json:"decoded"`
	Degraded   int            `json:"degraded"`
	Failed     int            `json:"failed"`
	Unknown    int            `json:"unknown"`
	Categories map[string]int `json:"categories,omitempty"`
}

// exportJSON writes the session data to a (gzipped) JSON file
func (b *Backend) exportJSON() error {
	export := b.buildExport()

	// Build filename
	version := strings.NewReplacer(" ", "_", ":", "_", "/", "_").Replace(b.session.GameVersion)
	if version == "" {
		version = "unknown"
	}
	timestamp := b.session.StartTime.Format("20060102_150405")

	var filename string
	if b.cfg.CompressOutput {
		filename = fmt.Sprintf("lview_%s_%s.json.gz", version, timestamp)
	} else {
		filename = fmt.Sprintf("lview_%s_%s.json", version, timestamp)
	}

	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	// Ensure output directory exists
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var err error
	if b.cfg.CompressOutput {
		err = writeGzipJSON(outputPath, export)
	} else {
		err = writeJSON(outputPath, export)
	}
	if err != nil {
		return err
	}

	b.lastExportPath = outputPath
	b.lastExportMeta.GameVersion = b.session.GameVersion
	b.lastExportMeta.StartTime = b.session.StartTime
	b.lastExportMeta.EntityCount = len(export.Entities)
	if n := len(b.frames); n > 0 {
		b.lastExportMeta.SessionDuration = float64(b.frames[n-1].GameTime - b.frames[0].GameTime)
	}
	return nil
}

func (b *Backend) buildExport() Export {
	export := Export{
		RecorderVersion:  b.session.RecorderVersion,
		GameVersion:      b.session.GameVersion,
		LayoutName:       b.session.LayoutName,
		KindTableVersion: b.session.KindTableVersion,
		StartTime:        b.session.StartTime.UTC().Format(time.RFC3339),
		CaptureDelay:     b.session.CaptureInterval.Seconds(),
		Entities:         make([]Entity, 0, len(b.order)),
		Frames:           make([]Frame, 0, len(b.frames)),
	}

	for _, addr := range b.order {
		rec := b.entities[addr]
		if len(rec.States) == 0 {
			continue
		}
		// identity fields come from the latest decode
		last := rec.States[len(rec.States)-1]
		entity := Entity{
			Address:    uint64(addr),
			Name:       last.Entity.Name,
			Label:      last.Label,
			TypeCode:   uint32(last.Entity.Type),
			Categories: last.Entity.Type.Flags().Names(),
			Team:       last.Entity.Team.String(),
			StartFrame: rec.FirstFrame,
			Positions:  make([][]any, 0, len(rec.States)),
		}
		if entity.Categories == nil {
			entity.Categories = []string{}
		}
		for _, s := range rec.States {
			e := s.Entity
			entity.Positions = append(entity.Positions, []any{
				s.Frame,
				s.GameTime,
				e.Position.X,
				e.Position.Y,
				e.Position.Z,
				e.Health,
				boolToInt(e.IsAlive),
				boolToInt(e.IsVisible),
				boolToInt(e.Deep),
			})
			if s.Frame > export.EndFrame {
				export.EndFrame = s.Frame
			}
		}
		export.Entities = append(export.Entities, entity)
	}

	for _, f := range b.frames {
		export.Frames = append(export.Frames, Frame{
			Frame:      f.Frame,
			GameTime:   f.GameTime,
			Time:       f.Time.UTC().Format(time.RFC3339Nano),
			DurationMs: float64(f.Duration.Microseconds()) / 1000,
			Listed:     f.Listed,
			Decoded:    f.Decoded,
			Degraded:   f.Degraded,
			Failed:     f.Failed,
			Unknown:    f.Unknown,
			Categories: f.Categories,
		})
		if f.Frame > export.EndFrame {
			export.EndFrame = f.Frame
		}
	}

	return export
}

func writeJSON(path string, data Export) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	return encoder.Encode(data)
}

func writeGzipJSON(path string, data Export) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	defer gzWriter.Close()

	encoder := json.NewEncoder(gzWriter)
	return encoder.Encode(data)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
