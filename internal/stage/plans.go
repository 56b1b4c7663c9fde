package stage

import "github.com/alienxp03/arena/internal/core"

func words(n int) *int { return &n }

func bullets(lo, hi int) *BulletRange { return &BulletRange{Min: lo, Max: hi} }

func quickPlan() *Plan {
	return &Plan{
		Mode: ModeQuick,
		Stages: []Descriptor{
			{ID: "MOD_SETUP", Label: "Moderator Setup", Speaker: core.RoleModerator, MaxWords: words(110)},
			{ID: "A_OPEN", Label: "Side A Opening", Speaker: core.RoleSideA, MaxWords: words(130)},
			{ID: "B_OPEN", Label: "Side B Opening", Speaker: core.RoleSideB, MaxWords: words(130)},
			{ID: "A_CHALLENGE", Label: "Side A Challenge", Speaker: core.RoleSideA, MaxWords: words(100), QuestionRequired: true, QuestionCount: 1},
			{ID: "B_COUNTER", Label: "Side B Counter", Speaker: core.RoleSideB, MaxWords: words(110), QuestionRequired: true, QuestionCount: 1},
			{ID: "A_COUNTER", Label: "Side A Counter", Speaker: core.RoleSideA, MaxWords: words(110), QuestionRequired: true, QuestionCount: 1},
			{ID: "B_CLOSE", Label: "Side B Closing", Speaker: core.RoleSideB, MaxWords: words(85)},
			{ID: "A_CLOSE", Label: "Side A Closing", Speaker: core.RoleSideA, MaxWords: words(85)},
			{ID: "JUDGE", Label: "Judge Decision", Speaker: core.RoleJudge},
		},
	}
}

func proPlan() *Plan {
	return &Plan{
		Mode: ModePro,
		Stages: []Descriptor{
			{ID: "MOD_SETUP", Label: "Moderator Setup", Speaker: core.RoleModerator, MaxWords: words(120), Bullets: bullets(3, 4)},
			{ID: "A_OPEN", Label: "Side A Opening", Speaker: core.RoleSideA, MaxWords: words(200), Bullets: bullets(3, 4)},
			{ID: "B_OPEN", Label: "Side B Opening", Speaker: core.RoleSideB, MaxWords: words(200), Bullets: bullets(3, 4)},
			{ID: "A_CROSSEX", Label: "Side A Cross-Examination", Speaker: core.RoleSideA, QuestionRequired: true, QuestionCount: 2},
			{ID: "B_CROSSEX", Label: "Side B Cross-Examination", Speaker: core.RoleSideB, QuestionRequired: true, QuestionCount: 2},
			{ID: "A_REBUTTAL", Label: "Side A Rebuttal", Speaker: core.RoleSideA, MaxWords: words(160), Bullets: bullets(2, 3)},
			{ID: "B_REBUTTAL", Label: "Side B Rebuttal", Speaker: core.RoleSideB, MaxWords: words(160), Bullets: bullets(2, 3)},
			{ID: "A_CROSSEX_2", Label: "Side A Second Cross-Examination", Speaker: core.RoleSideA, QuestionRequired: true, QuestionCount: 2},
			{ID: "B_CROSSEX_2", Label: "Side B Second Cross-Examination", Speaker: core.RoleSideB, QuestionRequired: true, QuestionCount: 2},
			{ID: "A_COUNTER", Label: "Side A Counter", Speaker: core.RoleSideA, MaxWords: words(140), Bullets: bullets(1, 3), QuestionRequired: true, QuestionCount: 1},
			{ID: "B_COUNTER", Label: "Side B Counter", Speaker: core.RoleSideB, MaxWords: words(140), Bullets: bullets(1, 3), QuestionRequired: true, QuestionCount: 1},
			{ID: "B_CLOSE", Label: "Side B Closing", Speaker: core.RoleSideB, MaxWords: words(120), Bullets: bullets(0, 3)},
			{ID: "A_CLOSE", Label: "Side A Closing", Speaker: core.RoleSideA, MaxWords: words(120), Bullets: bullets(0, 3)},
			{ID: "JUDGE", Label: "Judge Decision", Speaker: core.RoleJudge},
		},
	}
}

func discussionPlan() *Plan {
	return &Plan{
		Mode:       ModeDiscussion,
		Discussion: true,
		Stages: []Descriptor{
			{ID: "MOD_INTRO", Label: "Moderator Introduction", Speaker: core.RoleModerator, MaxWords: words(130)},
			{ID: "MOD_Q1", Label: "Moderator Question 1", Speaker: core.RoleModerator, MaxWords: words(60)},
			{ID: "A_RESPOND_1", Label: "Guest A Response 1", Speaker: core.RoleSideA, MaxWords: words(150)},
			{ID: "B_RESPOND_1", Label: "Guest B Response 1", Speaker: core.RoleSideB, MaxWords: words(150)},
			{ID: "MOD_Q2", Label: "Moderator Question 2", Speaker: core.RoleModerator, MaxWords: words(70)},
			{ID: "B_RESPOND_2", Label: "Guest B Response 2", Speaker: core.RoleSideB, MaxWords: words(150)},
			{ID: "A_RESPOND_2", Label: "Guest A Response 2", Speaker: core.RoleSideA, MaxWords: words(150)},
			{ID: "MOD_SYNTHESIS", Label: "Moderator Synthesis", Speaker: core.RoleModerator, MaxWords: words(80)},
			{ID: "A_FINAL", Label: "Guest A Final Thoughts", Speaker: core.RoleSideA, MaxWords: words(100)},
			{ID: "MOD_WRAP", Label: "Moderator Wrap-up", Speaker: core.RoleModerator, MaxWords: words(150)},
		},
	}
}
