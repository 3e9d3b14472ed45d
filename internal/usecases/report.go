package usecases

import (
	"fmt"
	"math"
	"strings"

	"github.com/abelzeko/flood-alert/internal/entities"
	"github.com/dustin/go-humanize"
)

const timestampLayout = "02/01/2006 15:04"

// ComposeReport renders the outgoing message for a report. It never fails.
func ComposeReport(report entities.Report) string {
	if report.Success != nil {
		return composeSuccess(report.Success)
	}
	if report.Degraded != nil {
		return composeDegraded(report.Degraded)
	}
	return composeDegraded(&entities.DegradedReport{
		GaugeStatus:     entities.StatusFailed,
		DischargeStatus: entities.StatusFailed,
	})
}

func composeSuccess(r *entities.SuccessReport) string {
	var b strings.Builder
	distance := r.Gauge.DistanceToBank()

	b.WriteString(fmt.Sprintf("%s %s\n", r.Tier.Icon(), r.Tier.Title()))
	b.WriteString(fmt.Sprintf("รายงานสถานการณ์น้ำเจ้าพระยา %s\n", r.Gauge.StationName))
	b.WriteString(fmt.Sprintf("ประจำวันที่: %s น.\n\n", r.Timestamp.Format(timestampLayout)))

	b.WriteString(fmt.Sprintf("• ระดับน้ำ (%s): %.2f ม.รทก.\n", r.Gauge.StationName, r.Gauge.WaterLevelMeters))
	if distance >= 0 {
		b.WriteString(fmt.Sprintf("  (ต่ำกว่าตลิ่งประมาณ %.2f ม.)\n", distance))
	} else {
		b.WriteString(fmt.Sprintf("  (สูงกว่าตลิ่งประมาณ %.2f ม.)\n", -distance))
	}
	b.WriteString(fmt.Sprintf("  (ระดับตลิ่ง: %.2f ม.รทก.)\n", r.Gauge.BankLevelMeters))

	b.WriteString(fmt.Sprintf("• เขื่อนเจ้าพระยา (ข้อมูลอ้างอิง): %s ลบ.ม./วินาที\n", groupedCMS(r.Discharge.CubicMetersPerSecond)))
	for _, c := range r.Comparisons {
		b.WriteString(fmt.Sprintf("  (เทียบปี %d วันที่ %d/%d: %s ลบ.ม./วินาที)\n",
			c.BuddhistYear, c.Record.Day, c.Record.Month, groupedCMS(c.Record.DischargeRate)))
	}

	b.WriteString("\n")
	b.WriteString(r.Tier.Recommendation())
	return b.String()
}

func composeDegraded(r *entities.DegradedReport) string {
	var b strings.Builder
	b.WriteString("⚙️❌ เกิดข้อผิดพลาดในการดึงข้อมูล ❌⚙️\n")
	b.WriteString(fmt.Sprintf("เวลา: %s น.\n\n", r.Timestamp.Format(timestampLayout)))
	station := r.StationName
	if station == "" {
		station = DefaultStationName
	}
	b.WriteString(fmt.Sprintf("• สถานะข้อมูลระดับน้ำ%s: %s\n", station, statusText(r.GaugeStatus)))
	b.WriteString(fmt.Sprintf("• สถานะข้อมูลเขื่อนเจ้าพระยา: %s\n\n", statusText(r.DischargeStatus)))
	b.WriteString("กรุณาตรวจสอบ Log ของระบบเพื่อดูรายละเอียดข้อผิดพลาดครับ")
	return b.String()
}

func statusText(s entities.SourceStatus) string {
	if s == entities.StatusOK {
		return "สำเร็จ"
	}
	return "ล้มเหลว"
}

// groupedCMS formats a flow rate with thousands separators and no decimals
func groupedCMS(v float64) string {
	return humanize.Comma(int64(math.Round(v)))
}
