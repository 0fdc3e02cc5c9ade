package config

// Default возвращает конфигурацию со значениями по умолчанию
func Default() *Config {
	return &Config{
		Simulation: SimulationConfig{
			MaxProgressingSeconds: 1.0 / 20.0,
			FrameRate:             60,
			LogLevel:              "info",
			Seed:                  1,
			BackgroundFollowRate:  2.0,
			GameoverDelay:         2.0,
			OnGameover:            "continue",
		},
		Stage: StageConfig{
			BuildInterval:     0.08,
			CollapseInterval:  0.6,
			StartSpeedupLines: 8,
			StartSpeedupRate:  3.0,
			BuildOffsetMin:    4.0,
			BuildOffsetMax:    8.0,
			BuildDurationMin:  0.3,
			BuildDurationMax:  0.6,
			BuildEases:        []string{"OutCubic", "OutBack", "OutQuad"},
			CollapseOffset:    -12.0,
			CollapseDuration:  0.8,
			CollapseEase:      "InQuad",
			AutoCollapseDelay: 6.0,
			OpenStartDelay:    0.5,
			MoveDownDuration:  0.4,
			StartLineOffset:   3,
			FinishLineOffset:  3,
			ClearCollapseRate: 4.0,
			CleanupRate:       6.0,
			Palette:           []string{"#E8E4D8", "#CFC8B4", "#B5AC93", "#9B9072"},
		},
		Pickable: PickableConfig{
			EntryDelay:       0.5,
			EntryInterval:    0.15,
			EntryDuration:    0.5,
			EntryOffset:      6.0,
			MaxSpeed:         6,
			MoveDurationMin:  0.08,
			MoveDurationMax:  0.3,
			SpeedExponent:    0.7,
			FallDuration:     1.0,
			FallDistance:     12.0,
			PressedScale:     0.2,
			PressedFallShift: -0.4,
			Padding:          0.3,
			AdjoinPadding:    0.05,
			SwipeThreshold:   12.0,
			SwipeSpeedScale:  0.004,
		},
		Item: ItemConfig{
			EntryDuration:    0.4,
			EntryOffset:      3.0,
			SpinDuration:     2.0,
			PickDuration:     0.3,
			FallDuration:     1.0,
			MoveDownDuration: 0.4,
		},
		Moving: MovingConfig{
			EntryDuration: 0.4,
			EntryOffset:   4.0,
			StepDuration:  0.35,
			FallDuration:  1.0,
		},
		Falling: FallingConfig{
			EntryDuration: 0.4,
			Height:        3.0,
			DropDuration:  0.25,
			StayDuration:  0.6,
			RiseDuration:  0.8,
			FallDuration:  1.0,
		},
		Panel: PanelConfig{
			EntryDuration: 0.3,
			FallDuration:  1.0,
			PressDepth:    0.08,
		},
		Records: RecordsConfig{
			Backend:       "memory",
			Path:          "data",
			RedisAddr:     "localhost:6379",
			RedisPrefix:   "cube-runner",
			SecondsPerRow: 0.9,
			StageScore:    1000,
			ItemScore:     200,
			CubeScore:     300,
			TimeBonus:     1000,
		},
		EventBus: EventBusConfig{
			Stream:    "CUBE_EVENTS",
			Retention: 24,
			Capacity:  1024,
		},
		Stages: StagesConfig{
			Dir:       "assets/stages",
			Generated: true,
			Width:     5,
			Length:    24,
		},
	}
}
