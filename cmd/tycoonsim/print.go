package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/talgya/tycoon-sim/internal/catalog"
	"github.com/talgya/tycoon-sim/internal/state"
	"github.com/talgya/tycoon-sim/internal/tech"
)

func printCompanies(st *state.Store, ctx state.TickContext) {
	color.New(color.FgYellow).Println("🏢 Companies:")

	counts := make(map[state.EntityID]int)
	for _, f := range st.Facilities {
		counts[f.CompanyID]++
	}

	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"ID", "Name", "Cash", "Reputation", "Expenses", "Facilities"}),
	)
	for _, id := range st.CompanyIDs() {
		c := st.Companies[id]
		cash, _ := st.Cash(id)
		name := c.Name
		if id == ctx.PlayerCompanyID {
			name = color.GreenString(name + " *")
		}
		cashStr := humanize.Comma(cash)
		if cash < 0 {
			cashStr = color.RedString(cashStr)
		}
		_ = table.Append([]string{
			strconv.FormatUint(id, 10),
			name,
			cashStr,
			strconv.Itoa(c.Reputation),
			humanize.Comma(c.MonthlyExpenses),
			strconv.Itoa(counts[id]),
		})
	}
	_ = table.Render()
	fmt.Println()
}

func printFacilities(st *state.Store, cat catalog.Lookup) {
	color.New(color.FgYellow).Println("🏭 Facilities:")

	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"ID", "Company", "Building", "Lvl", "Gen", "Op", "Util", "Output", "Quality", "Upkeep", "Eff"}),
	)
	for _, id := range st.FacilityIDs() {
		f := st.Facilities[id]
		building := fmt.Sprintf("#%d", f.BuildingID)
		if def, ok := cat.Building(f.BuildingID); ok {
			building = def.Name
		}

		op := color.GreenString("yes")
		if !f.Operational {
			op = color.RedString("no")
		}
		util, output := "-", "-"
		if p, ok := st.Production[id]; ok {
			util = fmt.Sprintf("%.0f%%", p.Utilization)
			output = fmt.Sprintf("%d/%d", p.ActualOutput, p.Capacity)
		}
		quality := "-"
		if inv, ok := st.Inventories[id]; ok && inv.Output.ProductID != 0 {
			quality = strconv.Itoa(inv.Output.Quality)
		}
		upkeep := "-"
		if m, ok := st.Maintenance[id]; ok {
			upkeep = humanize.Comma(m.MonthlyUpkeep)
		}
		eff := "-"
		if fa, ok := st.Factories[id]; ok {
			eff = fmt.Sprintf("%.0f", fa.Efficiency)
		} else if r, ok := st.Research[id]; ok {
			eff = fmt.Sprintf("%.0f", r.Efficiency)
		}
		gen := "-"
		if a, ok := st.Aging[id]; ok {
			gen = fmt.Sprintf("%d/%d", a.Level, a.MaxLevel)
		}

		_ = table.Append([]string{
			strconv.FormatUint(id, 10),
			strconv.FormatUint(f.CompanyID, 10),
			building,
			strconv.Itoa(f.Level),
			gen,
			op,
			util,
			output,
			quality,
			upkeep,
			eff,
		})
	}
	_ = table.Render()
	fmt.Println()
}

func printTechnology(st *state.Store, cat catalog.Lookup) {
	color.New(color.FgYellow).Println("🔬 Technology:")

	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Company", "Product", "Level", "Tier", "Breakthroughs", "Last"}),
	)
	for _, e := range st.Tech.Entries() {
		product := fmt.Sprintf("#%d", e.ProductID)
		if p, ok := cat.Product(e.ProductID); ok {
			product = p.Name
		}
		last := "-"
		if e.Breakthroughs > 0 {
			last = strconv.FormatUint(e.LastBreakthroughTick, 10)
		}
		_ = table.Append([]string{
			strconv.FormatUint(e.CompanyID, 10),
			product,
			strconv.Itoa(e.TechLevel),
			strconv.Itoa(tech.Tier(e.TechLevel)),
			strconv.Itoa(e.Breakthroughs),
			last,
		})
	}
	_ = table.Render()
	fmt.Println()
}
