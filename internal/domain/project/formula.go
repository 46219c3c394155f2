package project

import (
	"github.com/shopspring/decimal"
)

// IGV: amounts are VAT-inclusive at 18%, so the tax part of a gross amount
// x is x / 1.18 * 0.18.
var (
	vatRate       = decimal.RequireFromString("0.18")
	vatGrossRatio = decimal.RequireFromString("1.18")
)

// VATPortion returns the tax part of a VAT-inclusive amount
func VATPortion(gross decimal.Decimal) decimal.Decimal {
	return gross.Div(vatGrossRatio).Mul(vatRate)
}

// Recompute derives every figure of the project and the outstanding balance
// of every ledger row. Neither input is mutated. Applying Recompute to its own
// output yields the same output.
func Recompute(p Project, l *CategoryLedger) (Project, *CategoryLedger) {
	out := p.Clone()
	ledger := l.Clone()
	ledger.applyOutstandingRules()
	out.Figures = ComputeFigures(out.ContractAmount, out.AdvancesReceived, ledger)
	return out, ledger
}

// ComputeFigures evaluates the project formulas over a ledger whose
// outstanding balances are already derived.
func ComputeFigures(contract, advances decimal.Decimal, l *CategoryLedger) Figures {
	totals := l.Totals()
	ex := l.TotalsExcludingFlagged()

	var f Figures
	f.TotalBudget = totals.Budget
	f.TotalContract = totals.ContractValue
	f.TotalDisbursed = totals.Disbursed
	f.TotalOutstanding = totals.OutstandingBalance

	f.EstimatedProfitNoInvoice = contract.Sub(ex.Budget)
	f.RealProfitNoInvoice = contract.Sub(ex.Disbursed)
	f.BalanceProfitNoInvoice = f.EstimatedProfitNoInvoice.Sub(f.RealProfitNoInvoice)

	f.VAT = VATPortion(contract)

	invoice := func(c Category) bool { return c.InvoiceFlag }
	f.EstimatedVATCreditBase = l.sumWhere(CategoryBudget, invoice)
	f.EstimatedVATCredit = VATPortion(f.EstimatedVATCreditBase)
	f.EstimatedTax = f.VAT.Sub(f.EstimatedVATCredit)

	f.RealVATCreditBase = l.sumWhere(CategoryDisbursed, invoice)
	f.RealVATCredit = VATPortion(f.RealVATCreditBase)
	f.RealTax = f.VAT.Sub(f.RealVATCredit)

	f.EstimatedProfitWithInvoice = contract.Sub(ex.Budget.Add(f.EstimatedTax))
	f.RealProfitWithInvoice = contract.Sub(ex.Disbursed.Add(f.RealVATCredit))
	f.BalanceProfitWithInvoice = f.EstimatedProfitWithInvoice.Sub(f.RealProfitWithInvoice)

	f.ReceivableBalance = contract.Sub(advances)

	purchases := l.sumWhere(CategoryBudget, func(c Category) bool { return c.PurchaseBudget }).
		Add(l.sumWhere(CategoryContractValue, func(c Category) bool { return c.PurchaseContract }))
	f.PurchasesBalance = purchases.Sub(totals.Disbursed)

	f.BudgetBalance = totals.Budget.Sub(totals.Disbursed)
	return f
}
