// Package report renders recorded snapshots as HTML or PDF documents.
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/mscrnt/memprobe/pkg/db"
	"github.com/mscrnt/memprobe/pkg/spdreader"
	"github.com/mscrnt/memprobe/pkg/spdreader/parser"
	"github.com/mscrnt/memprobe/pkg/timings"
)

// ReportData contains all data needed for report generation
type ReportData struct {
	Snapshot    *db.Snapshot
	Status      db.SnapshotStatus
	Slots       []SlotReport
	Timings     *timings.RamTimings
	Optimized   *timings.RamTimings
	Warnings    []timings.Warning
	GeneratedAt time.Time
	SystemInfo  SystemInfo
}

// SlotReport is one row of the slot table, with the detailed decode when the
// image could be parsed.
type SlotReport struct {
	Slot    int
	Address string
	Valid   bool
	Length  int
	Summary parser.Summary
	Size    string
	Module  *parser.Module
	Error   string
}

// SystemInfo contains system information
type SystemInfo struct {
	Hostname     string
	OS           string
	Architecture string
	CPUModel     string
	CPUCores     int
	TotalMemory  string
}

// Generator creates reports from recorded snapshots
type Generator struct {
	database *db.DB
	policy   timings.Policy
	sysinfo  func() SystemInfo
}

// NewGenerator creates a new report generator. The optimized profile in the
// report is derived with policy.
func NewGenerator(database *db.DB, policy timings.Policy) *Generator {
	return &Generator{
		database: database,
		policy:   policy,
		sysinfo:  hostSystemInfo,
	}
}

// GenerateHTML generates an HTML report for a snapshot
func (g *Generator) GenerateHTML(snapshotID int64) (string, error) {
	data, err := g.loadReportData(snapshotID)
	if err != nil {
		return "", err
	}

	tmpl, err := loadHTMLTemplate()
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}

func (g *Generator) loadReportData(snapshotID int64) (*ReportData, error) {
	snap, err := g.database.GetSnapshot(snapshotID)
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	records, err := g.database.GetImageRecords(snapshotID)
	if err != nil {
		return nil, err
	}

	rt, err := g.database.GetTimings(snapshotID)
	if err != nil {
		return nil, err
	}

	data := &ReportData{
		Snapshot:    snap,
		Status:      snap.GetStatus(),
		Slots:       slotReports(records),
		Timings:     rt,
		GeneratedAt: time.Now(),
		SystemInfo:  g.sysinfo(),
	}

	if rt != nil {
		optimized := timings.Optimize(*rt, g.policy)
		data.Optimized = &optimized
		data.Warnings = timings.Validate(*rt, optimized, g.policy)
	}

	return data, nil
}

func slotReports(records []*db.ImageRecord) []SlotReport {
	slots := make([]SlotReport, 0, len(records))
	for _, rec := range records {
		sr := SlotReport{
			Slot:    rec.Slot,
			Address: fmt.Sprintf("0x%02X", spdreader.SlaveAddress(rec.Slot)),
			Valid:   rec.Valid,
			Length:  rec.Length,
			Error:   rec.Error,
		}
		if rec.Valid {
			if img, err := spdreader.NewImage(rec.Slot, rec.Data); err == nil {
				sr.Summary = img.Summary()
				sr.Size = humanize.IBytes(sr.Summary.SizeMB << 20)
				if m, err := img.Module(); err == nil {
					sr.Module = m
				}
			} else {
				sr.Error = err.Error()
			}
		}
		slots = append(slots, sr)
	}
	return slots
}

func hostSystemInfo() SystemInfo {
	info := SystemInfo{
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
	}

	if h, err := host.Info(); err == nil {
		info.Hostname = h.Hostname
		if h.Platform != "" {
			info.OS = h.Platform + " " + h.PlatformVersion
		}
		if h.KernelArch != "" {
			info.Architecture = h.KernelArch
		}
	}
	if cpus, err := cpu.Info(); err == nil && len(cpus) > 0 {
		info.CPUModel = cpus[0].ModelName
	}
	if n, err := cpu.Counts(true); err == nil {
		info.CPUCores = n
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		info.TotalMemory = humanize.IBytes(vm.Total)
	}
	return info
}

func loadHTMLTemplate() (*template.Template, error) {
	funcMap := template.FuncMap{
		"formatTime": func(t time.Time) string {
			return t.Format("2006-01-02 15:04:05")
		},
		"statusClass": func(s db.SnapshotStatus) string {
			switch s {
			case db.SnapshotStatusComplete:
				return "success"
			case db.SnapshotStatusFailed:
				return "failure"
			default:
				return "partial"
			}
		},
		"volts": func(v float32) string {
			return fmt.Sprintf("%.3f V", v)
		},
	}

	tmpl, err := template.New("report").Funcs(funcMap).Parse(htmlTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	return tmpl, nil
}

const htmlTemplate = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>memprobe Snapshot #{{.Snapshot.ID}}</title>
    <style>
        body { font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; color: #333; max-width: 1100px; margin: 0 auto; padding: 20px; background-color: #f5f5f5; }
        .container { background-color: white; border-radius: 8px; padding: 30px; }
        .header { border-bottom: 3px solid #2563EB; padding-bottom: 16px; margin-bottom: 24px; }
        .status { display: inline-block; padding: 4px 12px; border-radius: 4px; font-weight: bold; text-transform: uppercase; color: white; }
        .status.success { background-color: #10B981; }
        .status.partial { background-color: #F59E0B; }
        .status.failure { background-color: #EF4444; }
        .info-grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(220px, 1fr)); gap: 16px; margin: 20px 0; }
        .info-card { background-color: #f8f9fa; padding: 12px; border-left: 4px solid #2563EB; }
        .info-card h3 { margin: 0 0 6px 0; color: #666; font-size: 0.8em; text-transform: uppercase; }
        .info-card p { margin: 0; font-weight: 500; }
        table { width: 100%; border-collapse: collapse; margin-bottom: 24px; }
        th, td { padding: 8px; text-align: left; border-bottom: 1px solid #e0e0e0; }
        th { background-color: #f8f9fa; color: #666; }
        .empty { color: #999; }
        .error { color: #C00; }
        .warning { background-color: #FFF7E6; border: 1px solid #F5D08A; padding: 10px; margin: 6px 0; }
        .footer { margin-top: 32px; border-top: 1px solid #e0e0e0; padding-top: 16px; text-align: center; color: #666; font-size: 0.9em; }
    </style>
</head>
<body>
<div class="container">
    <div class="header">
        <h1>Memory Snapshot #{{.Snapshot.ID}}</h1>
        <p>Source: {{.Snapshot.Source}} | Status: <span class="status {{statusClass .Status}}">{{.Status}}</span></p>
    </div>

    <div class="info-grid">
        <div class="info-card"><h3>Taken</h3><p>{{formatTime .Snapshot.TakenAt}}</p></div>
        <div class="info-card"><h3>Host</h3><p>{{.SystemInfo.Hostname}}</p></div>
        <div class="info-card"><h3>OS</h3><p>{{.SystemInfo.OS}} ({{.SystemInfo.Architecture}})</p></div>
        <div class="info-card"><h3>CPU</h3><p>{{.SystemInfo.CPUModel}} ({{.SystemInfo.CPUCores}} threads)</p></div>
        <div class="info-card"><h3>Installed Memory</h3><p>{{.SystemInfo.TotalMemory}}</p></div>
    </div>

    {{if .Snapshot.Error}}
    <p class="error">Pass failed: {{.Snapshot.Error}}</p>
    {{end}}

    <h2>Slots</h2>
    <table>
        <thead><tr><th>Slot</th><th>Address</th><th>Type</th><th>Size</th><th>Manufacturer</th><th>Part</th><th>Speed</th><th>Timings</th></tr></thead>
        <tbody>
        {{range .Slots}}
        {{if .Valid}}
        <tr>
            <td>{{.Slot}}</td><td>{{.Address}}</td><td>{{.Summary.DDRType}}</td><td>{{.Size}}</td>
            <td>{{if .Summary.Manufacturer.Name}}{{.Summary.Manufacturer.Name}}{{else}}{{.Summary.Manufacturer}}{{end}}</td>
            {{with .Module}}<td>{{.PartNumber}}</td><td>{{.DataRateMTs}} MT/s</td><td>{{.Timings.CL}}-{{.Timings.RCD}}-{{.Timings.RP}}-{{.Timings.RAS}}</td>
            {{else}}<td></td><td></td><td>{{.Summary.TCL}}-{{.Summary.TRCD}}-{{.Summary.TRP}}-{{.Summary.TRAS}}</td>{{end}}
        </tr>
        {{else if .Error}}
        <tr><td>{{.Slot}}</td><td>{{.Address}}</td><td colspan="6" class="error">{{.Error}}</td></tr>
        {{else}}
        <tr class="empty"><td>{{.Slot}}</td><td>{{.Address}}</td><td colspan="6">empty</td></tr>
        {{end}}
        {{end}}
        </tbody>
    </table>

    {{if .Timings}}
    <h2>Timings</h2>
    <table>
        <thead><tr><th>Timing</th><th>Current</th><th>Optimized</th></tr></thead>
        <tbody>
            <tr><td>Generation</td><td>{{.Timings.Generation}}</td><td>{{.Optimized.Generation}}</td></tr>
            <tr><td>tCL</td><td>{{.Timings.TCL}}</td><td>{{.Optimized.TCL}}</td></tr>
            <tr><td>tRCD</td><td>{{.Timings.TRCD}}</td><td>{{.Optimized.TRCD}}</td></tr>
            <tr><td>tRP</td><td>{{.Timings.TRP}}</td><td>{{.Optimized.TRP}}</td></tr>
            <tr><td>tRAS</td><td>{{.Timings.TRAS}}</td><td>{{.Optimized.TRAS}}</td></tr>
            <tr><td>tRFC</td><td>{{.Timings.TRFC}}</td><td>{{.Optimized.TRFC}}</td></tr>
            <tr><td>tFAW</td><td>{{.Timings.TFAW}}</td><td>{{.Optimized.TFAW}}</td></tr>
            <tr><td>VDD</td><td>{{volts .Timings.VDD}}</td><td>{{volts .Optimized.VDD}}</td></tr>
        </tbody>
    </table>
    {{range .Warnings}}<div class="warning">{{.String}}</div>{{end}}
    {{end}}

    <div class="footer">Generated by memprobe on {{formatTime .GeneratedAt}}</div>
</div>
</body>
</html>
`
