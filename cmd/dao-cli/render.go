package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/daodao/core/internal/api"
	"github.com/daodao/core/internal/chain"
	"github.com/daodao/core/pkg/types"
)

var (
	okStyle   = color.New(color.FgGreen, color.Bold)
	failStyle = color.New(color.FgRed, color.Bold)
	keyStyle  = color.New(color.FgCyan)
)

// render prints v as indented JSON or as the table built by tbl
func render(cmd *cobra.Command, opts *options, v any, tbl func() string) error {
	if opts.output == "json" {
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return printJSON(cmd, raw)
	}
	fmt.Fprintln(cmd.OutOrStdout(), tbl())
	return nil
}

func printJSON(cmd *cobra.Command, raw []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), buf.String())
	return nil
}

func newTable(header ...any) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.Style().Options.DrawBorder = false
	t.Style().Options.SeparateColumns = false
	if len(header) > 0 {
		t.AppendHeader(header)
	}
	return t
}

func formatTime(ts types.Timestamp) string {
	return time.Unix(0, int64(ts)).UTC().Format(time.RFC3339)
}

func renderStatus(st api.StatusResponse) string {
	t := newTable()
	t.AppendRows([]table.Row{
		{keyStyle.Sprint("chain id"), st.ChainID},
		{keyStyle.Sprint("height"), st.Height},
		{keyStyle.Sprint("time"), formatTime(st.Time)},
		{keyStyle.Sprint("pending"), st.Pending},
	})
	return t.Render()
}

func renderBlocks(blocks []chain.Block) string {
	t := newTable("HEIGHT", "TIME", "TXS")
	for _, b := range blocks {
		t.AppendRow(table.Row{b.Height, formatTime(b.Time), len(b.TxIDs)})
	}
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 3, Align: text.AlignRight}})
	return t.Render()
}

func renderTxPool(txs []types.Tx) string {
	t := newTable("ID", "SENDER", "KIND", "SUBMITTED")
	for _, tx := range txs {
		t.AppendRow(table.Row{tx.ID, tx.Sender, msgKind(tx.Msg), formatTime(tx.SubmittedAt)})
	}
	return t.Render()
}

func msgKind(m types.CosmosMsg) string {
	switch {
	case m.Bank != nil:
		return "bank/send"
	case m.Wasm != nil && m.Wasm.Execute != nil:
		return "wasm/execute " + m.Wasm.Execute.ContractAddr.String()
	case m.Wasm != nil && m.Wasm.Instantiate != nil:
		return "wasm/instantiate " + m.Wasm.Instantiate.CodeID
	case m.Wasm != nil && m.Wasm.Migrate != nil:
		return "wasm/migrate"
	}
	return "unknown"
}

func renderTxResult(res types.TxResult) string {
	var sb strings.Builder
	status := okStyle.Sprint("OK")
	if res.Error != "" {
		status = failStyle.Sprint("FAILED")
	}
	fmt.Fprintf(&sb, "%s  tx %s at height %d\n", status, res.TxID, res.Height)
	if res.Error != "" {
		fmt.Fprintf(&sb, "  %s\n", res.Error)
		return sb.String()
	}

	t := newTable("EVENT", "CONTRACT", "KEY", "VALUE")
	for _, e := range res.Events {
		for i, a := range e.Attributes {
			typ, contract := "", ""
			if i == 0 {
				typ, contract = e.Type, e.Contract.String()
			}
			t.AppendRow(table.Row{typ, contract, a.Key, a.Value})
		}
	}
	sb.WriteString(t.Render())
	if len(res.Data) > 0 {
		fmt.Fprintf(&sb, "\ndata: %s", res.Data)
	}
	return sb.String()
}

func renderContracts(list []api.ContractResponse) string {
	t := newTable("ADDRESS", "CODE", "LABEL", "CREATOR", "HEIGHT")
	for _, c := range list {
		t.AppendRow(table.Row{c.Address, c.CodeID, c.Label, c.Creator, c.Created})
	}
	return t.Render()
}

func renderContract(c api.ContractResponse) string {
	admin := lo.FromPtrOr(c.Admin, "")
	t := newTable()
	t.AppendRows([]table.Row{
		{keyStyle.Sprint("address"), c.Address},
		{keyStyle.Sprint("code"), c.CodeID},
		{keyStyle.Sprint("label"), c.Label},
		{keyStyle.Sprint("admin"), admin},
		{keyStyle.Sprint("creator"), c.Creator},
		{keyStyle.Sprint("created"), c.Created},
	})
	return t.Render()
}

func renderCoins(coins []types.Coin) string {
	t := newTable("DENOM", "AMOUNT")
	for _, c := range coins {
		t.AppendRow(table.Row{c.Denom, c.Amount.String()})
	}
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})
	return t.Render()
}
