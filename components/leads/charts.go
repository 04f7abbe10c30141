package leads

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

const defaultChartHeight = "320px"

// Chart keys in DashboardStats.Charts.
const (
	ChartTraffic = "traffic"
	ChartRevenue = "revenue"
)

// ChartOption customizes a ChartRenderer.
type ChartOption func(*ChartRenderer)

// WithChartCache injects a render cache. Passing nil disables caching.
func WithChartCache(cache RenderCache) ChartOption {
	return func(r *ChartRenderer) {
		r.cache = cache
	}
}

// WithChartTheme sets the ECharts theme.
func WithChartTheme(theme string) ChartOption {
	return func(r *ChartRenderer) {
		if theme != "" {
			r.theme = theme
		}
	}
}

// WithChartAssetsHost points the rendered markup at a different ECharts host.
// An empty host is ignored.
func WithChartAssetsHost(host string) ChartOption {
	return func(r *ChartRenderer) {
		if host = strings.TrimSpace(host); host != "" {
			r.assetsHost = host
		}
	}
}

// ChartRenderer renders the dashboard charts to HTML with go-echarts.
type ChartRenderer struct {
	cache      RenderCache
	theme      string
	assetsHost string
}

// NewChartRenderer builds a renderer. Without options it uses the westeros theme and no cache.
func NewChartRenderer(options ...ChartOption) *ChartRenderer {
	r := &ChartRenderer{theme: types.ThemeWesteros}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// RenderAll renders every dashboard chart keyed by ChartTraffic and ChartRevenue.
func (r *ChartRenderer) RenderAll(points []MonthlyPoint) (map[string]string, error) {
	traffic, err := r.Traffic(points)
	if err != nil {
		return nil, err
	}
	revenue, err := r.Revenue(points)
	if err != nil {
		return nil, err
	}
	return map[string]string{ChartTraffic: traffic, ChartRevenue: revenue}, nil
}

// Traffic renders users and sessions per month as a smooth line chart.
func (r *ChartRenderer) Traffic(points []MonthlyPoint) (string, error) {
	return r.cached(ChartTraffic, points, func() (string, error) {
		line := charts.NewLine()
		line.SetGlobalOptions(r.globalOptions("Traffic", "Users and sessions per month")...)
		line.SetXAxis(monthLabels(points))
		line.AddSeries("Users", lineData(points, func(p MonthlyPoint) int { return p.Users }))
		line.AddSeries("Sessions", lineData(points, func(p MonthlyPoint) int { return p.Sessions }))
		line.SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))
		return renderChart(line)
	})
}

// Revenue renders monthly revenue as an area chart.
func (r *ChartRenderer) Revenue(points []MonthlyPoint) (string, error) {
	return r.cached(ChartRevenue, points, func() (string, error) {
		area := charts.NewLine()
		area.SetGlobalOptions(r.globalOptions("Revenue", "Monthly revenue")...)
		area.SetXAxis(monthLabels(points))
		area.AddSeries("Revenue", lineData(points, func(p MonthlyPoint) int { return p.Revenue }),
			charts.WithAreaStyleOpts(opts.AreaStyle{}),
			charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}),
		)
		return renderChart(area)
	})
}

func (r *ChartRenderer) cached(name string, points []MonthlyPoint, render func() (string, error)) (string, error) {
	if len(points) == 0 {
		return "", fmt.Errorf("leads: %s chart requires data", name)
	}
	if r.cache == nil {
		return render()
	}
	key := strings.Join([]string{name, r.theme, r.assetsHost, seriesHash(points)}, ":")
	return r.cache.GetOrRender(key, render)
}

func (r *ChartRenderer) globalOptions(title, subtitle string) []charts.GlobalOpts {
	initOpts := opts.Initialization{
		Theme:  r.theme,
		Width:  "100%",
		Height: defaultChartHeight,
	}
	if r.assetsHost != "" {
		initOpts.AssetsHost = r.assetsHost
	}
	return []charts.GlobalOpts{
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithInitializationOpts(initOpts),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	}
}

func renderChart(renderable interface{ Render(io.Writer) error }) (string, error) {
	var buf bytes.Buffer
	if err := renderable.Render(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func monthLabels(points []MonthlyPoint) []string {
	labels := make([]string, len(points))
	for i, p := range points {
		labels[i] = p.Month
	}
	return labels
}

func lineData(points []MonthlyPoint, value func(MonthlyPoint) int) []opts.LineData {
	data := make([]opts.LineData, len(points))
	for i, p := range points {
		data[i] = opts.LineData{Name: p.Month, Value: value(p)}
	}
	return data
}
