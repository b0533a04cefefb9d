package streaks

// Level is a display band for a streak length.
type Level int

const (
	LevelNone Level = iota
	LevelStarting
	LevelBuilding
	LevelStrong
	LevelOnFire
)

// Band maps a streak length onto its display band: 0, 1-3, 4-7, 8-14, 15+.
func Band(streak int) Level {
	switch {
	case streak <= 0:
		return LevelNone
	case streak < 4:
		return LevelStarting
	case streak < 8:
		return LevelBuilding
	case streak < 15:
		return LevelStrong
	default:
		return LevelOnFire
	}
}

func (l Level) String() string {
	switch l {
	case LevelStarting:
		return "starting"
	case LevelBuilding:
		return "building"
	case LevelStrong:
		return "strong"
	case LevelOnFire:
		return "on fire"
	default:
		return "none"
	}
}
