package signal

import "time"

// Direction 方向信号的封闭变体集：信号源只会发出 Long/Short 两种边沿事件。
type Direction int

const (
	None Direction = iota
	Long
	Short
)

func (d Direction) String() string {
	switch d {
	case Long:
		return "LONG"
	case Short:
		return "SHORT"
	default:
		return "NONE"
	}
}

// Event 一次方向边沿事件。WATR 是外部算好的波动率估计（小波细节系数能量），
// 本层只当作数值使用，不关心推导方式。
type Event struct {
	Direction Direction
	Price     float64
	WATR      float64
	Time      time.Time
}

// Detector 边沿触发器：只在方向发生变化时产生事件，
// 重复评估同一方向不会重复触发。
type Detector struct {
	last Direction
}

func NewDetector() *Detector {
	return &Detector{}
}

// Update 喂入最新方向评估；发生边沿时返回事件与 true。
func (d *Detector) Update(dir Direction, price, watr float64) (Event, bool) {
	if dir == None || dir == d.last {
		return Event{}, false
	}
	d.last = dir
	return Event{
		Direction: dir,
		Price:     price,
		WATR:      watr,
		Time:      time.Now(),
	}, true
}

// Current 返回最近一次触发的方向。
func (d *Detector) Current() Direction { return d.last }

// Reset 清空状态，下一次任意方向都会触发。
func (d *Detector) Reset() { d.last = None }
