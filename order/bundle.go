package order

// Bundle 按角色维护一个仓位名下的全部在途订单，按 id 与 tag 两路索引，
// 支持批量查询与批量改价。改价/撤销经由 Gateway 下发，Bundle 只做登记。
//
// Bundle 自身不加锁：它与 position.Tracker 构成同一份跨线程共享状态，
// 由 manager.PositionManager 的互斥区统一串行化。
type Bundle struct {
	gw     Gateway
	byID   map[string]*TrackedOrder
	byRole map[Role]map[string]*TrackedOrder
	byTag  map[string]string // tag -> 最近一次以该 tag 登记的订单 id
}

func NewBundle(gw Gateway) *Bundle {
	return &Bundle{
		gw:   gw,
		byID: make(map[string]*TrackedOrder),
		byRole: map[Role]map[string]*TrackedOrder{
			RoleEntry:  make(map[string]*TrackedOrder),
			RoleStop:   make(map[string]*TrackedOrder),
			RoleTarget: make(map[string]*TrackedOrder),
		},
		byTag: make(map[string]string),
	}
}

// AddEntryOrder 登记入场单。
func (b *Bundle) AddEntryOrder(id string, handle Handle, tag string) {
	b.add(id, RoleEntry, handle, tag)
}

// AddStopOrder 登记止损单。
func (b *Bundle) AddStopOrder(id string, handle Handle, tag string) {
	b.add(id, RoleStop, handle, tag)
}

// AddTargetOrder 登记止盈单。
func (b *Bundle) AddTargetOrder(id string, handle Handle, tag string) {
	b.add(id, RoleTarget, handle, tag)
}

// add 以 Active 状态插入；重复 tag 采用 last-write-wins 覆盖索引，
// 旧订单仍可通过 id 检索（多止损/多止盈策略会复用 tag）。
func (b *Bundle) add(id string, role Role, handle Handle, tag string) {
	o := &TrackedOrder{
		ID:     id,
		Role:   role,
		Tag:    tag,
		Handle: handle,
		Status: StatusActive,
	}
	b.byID[id] = o
	b.byRole[role][id] = o
	if tag != "" {
		b.byTag[tag] = id
	}
}

// OrderByID 返回订单值拷贝；不存在时第二个返回值为 false。
func (b *Bundle) OrderByID(id string) (TrackedOrder, bool) {
	o, ok := b.byID[id]
	if !ok {
		return TrackedOrder{}, false
	}
	return *o, true
}

// OrderByTag 返回最近一次以该 tag 登记的订单。
func (b *Bundle) OrderByTag(tag string) (TrackedOrder, bool) {
	id, ok := b.byTag[tag]
	if !ok {
		return TrackedOrder{}, false
	}
	return b.OrderByID(id)
}

// ActiveStopOrders 返回所有仍在途的止损单拷贝。
func (b *Bundle) ActiveStopOrders() []TrackedOrder {
	return b.activeByRole(RoleStop)
}

// ActiveTargetOrders 返回所有仍在途的止盈单拷贝。
func (b *Bundle) ActiveTargetOrders() []TrackedOrder {
	return b.activeByRole(RoleTarget)
}

func (b *Bundle) activeByRole(role Role) []TrackedOrder {
	var out []TrackedOrder
	for _, o := range b.byRole[role] {
		if o.Active() {
			out = append(out, *o)
		}
	}
	return out
}

// ModifyStopByTag 解析 tag 并经网关改价。tag 不存在、订单非止损、
// 订单已终态或网关拒绝时返回 false，不抛异常。
func (b *Bundle) ModifyStopByTag(tag string, newPrice float64) bool {
	return b.modifyByTag(tag, RoleStop, newPrice)
}

// ModifyTargetByTag 同上，针对止盈单。
func (b *Bundle) ModifyTargetByTag(tag string, newPrice float64) bool {
	return b.modifyByTag(tag, RoleTarget, newPrice)
}

func (b *Bundle) modifyByTag(tag string, role Role, newPrice float64) bool {
	id, ok := b.byTag[tag]
	if !ok {
		return false
	}
	o, ok := b.byID[id]
	if !ok || o.Role != role || !o.Active() {
		return false
	}
	if b.gw == nil {
		return false
	}
	return b.gw.Modify(o.ID, newPrice)
}

// ModifyAllStops 对每个在途止损单独立改价，返回成功数量。
// 非原子：部分失败时旧价/新价并存，不做回滚，调用方自行处理。
func (b *Bundle) ModifyAllStops(newPrice float64) int {
	return b.modifyAll(RoleStop, newPrice)
}

// ModifyAllTargets 对每个在途止盈单独立改价，返回成功数量。
func (b *Bundle) ModifyAllTargets(newPrice float64) int {
	return b.modifyAll(RoleTarget, newPrice)
}

func (b *Bundle) modifyAll(role Role, newPrice float64) int {
	if b.gw == nil {
		return 0
	}
	count := 0
	for _, o := range b.byRole[role] {
		if !o.Active() {
			continue
		}
		if b.gw.Modify(o.ID, newPrice) {
			count++
		}
	}
	return count
}

// MarkFilled 将订单标记为已成交，返回是否找到。
func (b *Bundle) MarkFilled(id string) bool {
	return b.markStatus(id, StatusFilled)
}

// MarkCancelled 将订单标记为已撤销，返回是否找到。
func (b *Bundle) MarkCancelled(id string) bool {
	return b.markStatus(id, StatusCancelled)
}

func (b *Bundle) markStatus(id string, st Status) bool {
	o, ok := b.byID[id]
	if !ok {
		return false
	}
	o.Status = st
	return true
}

// RemoveOrder 仅做登记摘除，不向网关发撤单：
// 调用方必须已确认该订单撤销/成交完毕。
func (b *Bundle) RemoveOrder(id string) bool {
	o, ok := b.byID[id]
	if !ok {
		return false
	}
	delete(b.byID, id)
	delete(b.byRole[o.Role], id)
	if cur, ok := b.byTag[o.Tag]; ok && cur == id {
		delete(b.byTag, o.Tag)
	}
	return true
}

// Clear 清空全部分区（整仓退出时使用）。
func (b *Bundle) Clear() {
	b.byID = make(map[string]*TrackedOrder)
	for role := range b.byRole {
		b.byRole[role] = make(map[string]*TrackedOrder)
	}
	b.byTag = make(map[string]string)
}

// Size 返回登记订单总数（含终态）。
func (b *Bundle) Size() int { return len(b.byID) }

// ActiveCount 返回在途订单数。
func (b *Bundle) ActiveCount() int {
	n := 0
	for _, o := range b.byID {
		if o.Active() {
			n++
		}
	}
	return n
}
