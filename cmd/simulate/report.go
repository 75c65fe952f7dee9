package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/andresuchdata/premium-allocation/internal/domain"
	"github.com/shopspring/decimal"
)

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// money renders v rounded to cents with thousands separators, e.g. 1,234,567.89.
func money(v float64) string {
	s := decimal.NewFromFloat(v).Round(2).StringFixed(2)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + b.String() + "." + frac
}

func pct(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2) + "%"
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
}

func writeWarnings(w io.Writer, warnings []domain.Warning) {
	for _, warn := range warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
}

func writeAllocation(w io.Writer, ds *domain.Dataset, view domain.AllocationView) error {
	fmt.Fprintf(w, "policy: %s\n\n", view.Policy.Label())

	tw := newTable(w)
	fmt.Fprintln(tw, "region\tname\tamount\t")
	for _, r := range ds.Regions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t\n", r.ID, r.Name, money(view.Amounts[r.ID]))
	}
	fmt.Fprintf(tw, "total\t\t%s\t\n", money(view.Total))
	fmt.Fprintf(tw, "target\t\t%s\t\n", money(view.Target))
	fmt.Fprintf(tw, "difference\t\t%s\t\n", money(view.Difference))
	if err := tw.Flush(); err != nil {
		return err
	}

	writeWarnings(w, view.Warnings)
	return nil
}

func writeMetrics(w io.Writer, report domain.MetricsReport) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "region\tcustomers\tallocation\tcurrent premium\tnew premium\tavg new premium\texpected loss\tprofit\tmargin\t")
	for _, m := range report.Regions {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			m.RegionID, m.Customers, money(m.Allocation), money(m.CurrentPremium), money(m.NewPremium),
			money(m.AvgNewPremium), money(m.ExpectedLoss), money(m.Profit), pct(m.ProfitMargin))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	p := report.Portfolio
	fmt.Fprintln(w)
	tw = newTable(w)
	fmt.Fprintf(tw, "customers\t%d\t\n", p.Customers)
	fmt.Fprintf(tw, "total current premium\t%s\t\n", money(p.TotalCurrentPremium))
	fmt.Fprintf(tw, "total new premium\t%s\t\n", money(p.TotalNewPremium))
	fmt.Fprintf(tw, "premium increase\t%s (%s)\t\n", money(p.PremiumIncrease), pct(p.PremiumIncreasePct))
	fmt.Fprintf(tw, "total expected loss\t%s\t\n", money(p.TotalExpectedLoss))
	fmt.Fprintf(tw, "total profit\t%s (%s)\t\n", money(p.TotalProfit), pct(p.TotalProfitMargin))
	fmt.Fprintf(tw, "avg premium\t%s -> %s\t\n", money(p.AvgCurrentPremium), money(p.AvgNewPremium))
	if err := tw.Flush(); err != nil {
		return err
	}

	writeWarnings(w, report.Warnings)
	return nil
}

func writeSimulation(w io.Writer, res domain.SimulationResult) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "region\toriginal\tstaying\tchurned\tstay rate\told share\tnew share\tshift\t")
	for _, r := range res.Regions {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\t%s\t%s\t%+.2f pp\t\n",
			r.RegionID, r.Original, r.Staying, r.Churned, pct(r.StayRate), pct(r.OldShare), pct(r.NewShare), r.ShareDelta)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	p := res.Portfolio
	fmt.Fprintln(w)
	tw = newTable(w)
	fmt.Fprintf(tw, "seed\t%d\t\n", p.Seed)
	fmt.Fprintf(tw, "customers staying\t%d of %d\t\n", p.Staying, p.Customers)
	fmt.Fprintf(tw, "stay rate\t%s\t\n", pct(p.StayRate))
	fmt.Fprintf(tw, "churn rate\t%s\t\n", pct(p.ChurnRate))
	fmt.Fprintf(tw, "premium collected\t%s\t\n", money(p.PremiumCollected))
	fmt.Fprintf(tw, "expected loss remaining\t%s\t\n", money(p.ExpectedLossRemaining))
	fmt.Fprintf(tw, "realized profit\t%s\t\n", money(p.RealizedProfit))
	if err := tw.Flush(); err != nil {
		return err
	}

	writeWarnings(w, res.Warnings)
	return nil
}

func writeBatch(w io.Writer, batch domain.BatchResult) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "seed\tstaying\tstay rate\trealized profit\t")
	for _, r := range batch.Runs {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t\n", r.Seed, r.Staying, pct(r.StayRate), money(r.RealizedProfit))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	tw = newTable(w)
	fmt.Fprintln(tw, "\tmean\tstd dev\tmin\tmax\t")
	s := batch.StayRate
	fmt.Fprintf(tw, "stay rate\t%s\t%s\t%s\t%s\t\n", pct(s.Mean), pct(s.StdDev), pct(s.Min), pct(s.Max))
	s = batch.RealizedProfit
	fmt.Fprintf(tw, "realized profit\t%s\t%s\t%s\t%s\t\n", money(s.Mean), money(s.StdDev), money(s.Min), money(s.Max))
	return tw.Flush()
}
