package models

// CultivationStatus is the lifecycle of a cultivation project.
type CultivationStatus string

const (
	CultivationInProgress CultivationStatus = "InProgress"
	CultivationCompleted  CultivationStatus = "Completed"
	CultivationFailed     CultivationStatus = "Failed"
	CultivationPlanned    CultivationStatus = "Planned"
)

// HarvestStatus is the lifecycle of a harvest lot.
type HarvestStatus string

const (
	HarvestHarvested HarvestStatus = "Harvested"
	HarvestDrying    HarvestStatus = "Drying"
	HarvestDried     HarvestStatus = "Dried"
	HarvestFailed    HarvestStatus = "Failed"
)

// TransformationStatus is the lifecycle of a transformation step.
type TransformationStatus string

const (
	TransformationPlanned    TransformationStatus = "Planned"
	TransformationInProgress TransformationStatus = "InProgress"
	TransformationCompleted  TransformationStatus = "Completed"
	TransformationCancelled  TransformationStatus = "Cancelled"
)

// ManufacturingStatus is the lifecycle of a finished-goods lot.
type ManufacturingStatus string

const (
	ManufacturingPlanned        ManufacturingStatus = "Planned"
	ManufacturingInProgress     ManufacturingStatus = "InProgress"
	ManufacturingProduced       ManufacturingStatus = "Produced"
	ManufacturingQualityControl ManufacturingStatus = "QualityControl"
	ManufacturingSellable       ManufacturingStatus = "Sellable"
	ManufacturingRejected       ManufacturingStatus = "Rejected"
	ManufacturingCancelled      ManufacturingStatus = "Cancelled"
)

// SaleStatus tracks invoicing of a sale.
type SaleStatus string

const (
	SaleDraft     SaleStatus = "Draft"
	SaleInvoiced  SaleStatus = "Invoiced"
	SalePaid      SaleStatus = "Paid"
	SaleCancelled SaleStatus = "Cancelled"
)

// The first status of each lifecycle is the one a record gets when saved
// without a status.
var lifecycles = map[Kind][]string{
	KindCultivation: {
		string(CultivationInProgress), string(CultivationCompleted), string(CultivationFailed),
		string(CultivationPlanned),
	},
	KindHarvest: {
		string(HarvestHarvested), string(HarvestDrying), string(HarvestDried), string(HarvestFailed),
	},
	KindTransformation: {
		string(TransformationPlanned), string(TransformationInProgress),
		string(TransformationCompleted), string(TransformationCancelled),
	},
	KindManufacturing: {
		string(ManufacturingPlanned), string(ManufacturingInProgress), string(ManufacturingProduced),
		string(ManufacturingQualityControl), string(ManufacturingSellable),
		string(ManufacturingRejected), string(ManufacturingCancelled),
	},
	KindSale: {
		string(SaleDraft), string(SaleInvoiced), string(SalePaid), string(SaleCancelled),
	},
}

// Statuses lists the lifecycle of a kind. Kinds without a lifecycle return nil.
func Statuses(kind Kind) []string {
	return append([]string(nil), lifecycles[kind]...)
}

// ValidStatus reports whether rec's status belongs to its kind's lifecycle.
func ValidStatus(rec Record) bool {
	statuses, ok := lifecycles[rec.Ref().Kind]
	if !ok {
		return rec.Lifecycle() == ""
	}
	for _, s := range statuses {
		if s == rec.Lifecycle() {
			return true
		}
	}
	return false
}

// DefaultStatus fills an empty status with the first of its lifecycle.
func DefaultStatus(rec Record) {
	statuses, ok := lifecycles[rec.Ref().Kind]
	if !ok || rec.Lifecycle() != "" {
		return
	}
	switch r := rec.(type) {
	case *CultivationProject:
		r.Status = CultivationStatus(statuses[0])
	case *HarvestLot:
		r.Status = HarvestStatus(statuses[0])
	case *TransformationStep:
		r.Status = TransformationStatus(statuses[0])
	case *ManufacturingLot:
		r.Status = ManufacturingStatus(statuses[0])
	case *Sale:
		r.Status = SaleStatus(statuses[0])
	}
}
