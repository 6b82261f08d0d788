package value

// Privileges — множества пользователей с особыми условиями.
//   - vip: не платят за выставление и получают повышенный реферальный процент;
//   - commissionExempt: держатели NFT, с их продаж комиссия не берётся.
type Privileges struct {
	vip              map[int64]struct{}
	commissionExempt map[int64]struct{}
}

func NewPrivileges(vipIDs, commissionExemptIDs []int64) Privileges {
	return Privileges{
		vip:              toSet(vipIDs),
		commissionExempt: toSet(commissionExemptIDs),
	}
}

func (p Privileges) IsVIP(userID int64) bool {
	_, ok := p.vip[userID]
	return ok
}

func (p Privileges) IsCommissionExempt(userID int64) bool {
	_, ok := p.commissionExempt[userID]
	return ok
}

func toSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
