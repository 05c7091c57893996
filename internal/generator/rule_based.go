package generator

import (
	"context"
	"strings"

	"f1-rag-go/internal/model"
)

type rule struct {
	all      []string
	any      []string
	response string
}

func (r rule) matches(q string) bool {
	for _, kw := range r.all {
		if !strings.Contains(q, kw) {
			return false
		}
	}
	if len(r.any) == 0 {
		return true
	}
	for _, kw := range r.any {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}

// 按顺序匹配，命中第一条即返回
var rules = []rule{
	{all: []string{"2023"}, any: []string{"champion", "winner", "won"},
		response: "Max Verstappen took the 2023 Formula 1 World Championship, his third title in a row. He won 19 of the 22 Grands Prix that year, a new record for a single season, while Red Bull team-mate Sergio Pérez finished runner-up."},
	{any: []string{"hamilton"},
		response: "Lewis Hamilton is a seven-time Formula 1 World Champion, with titles at McLaren and Mercedes. He holds the records for most pole positions, most podiums and most career points."},
	{any: []string{"verstappen"},
		response: "Max Verstappen races for Red Bull Racing and won the drivers' title in 2021, 2022 and 2023. He is known for an aggressive, confident driving style and has been the reference driver of the current era."},
	{any: []string{"leclerc"},
		response: "Charles Leclerc has driven for Ferrari since 2019. He is one of the fastest qualifiers on the grid, with multiple pole positions and race wins for the Scuderia."},
	{any: []string{"norris"},
		response: "Lando Norris is McLaren's British driver and has been with the team since his 2019 debut. He is valued for his consistency and has collected many podium finishes."},
	{any: []string{"mercedes"},
		response: "Mercedes-AMG Petronas is one of the most successful teams in Formula 1. It won eight consecutive Constructors' Championships from 2014 to 2021, the defining run of the hybrid era."},
	{any: []string{"red bull", "redbull"},
		response: "Red Bull Racing won the Constructors' Championship in 2022 and 2023 and the Drivers' Championship with Max Verstappen from 2021 to 2023, built on an innovative aerodynamic approach."},
	{any: []string{"ferrari"},
		response: "Scuderia Ferrari is the oldest and most famous team in Formula 1 and the only one to have raced in every season since 1950. It holds the most Constructors' Championships."},
	{any: []string{"mclaren"},
		response: "McLaren has won multiple Constructors' and Drivers' Championships and has been home to legends such as Ayrton Senna, Alain Prost and Lewis Hamilton."},
	{any: []string{"monaco", "monte carlo"},
		response: "The Monaco Grand Prix runs on the streets of Monte Carlo. Its tight, slow corners make overtaking very hard, so qualifying position is often decisive."},
	{any: []string{"silverstone", "british grand prix"},
		response: "Silverstone hosts the British Grand Prix and staged the very first World Championship race in 1950. Its fast, flowing corners make it a favourite with drivers."},
	{any: []string{"spa", "belgian"},
		response: "Spa-Francorchamps, home of the Belgian Grand Prix, winds through the Ardennes forest. It is famous for Eau Rouge and for weather that can change from one end of the lap to the other."},
	{any: []string{"championship", "standings", "points"},
		response: "The World Championship is decided over a season of 22 to 24 Grands Prix. Points go to the top ten finishers of each race, with separate titles for drivers and constructors."},
	{any: []string{"race", "grand prix"},
		response: "A Formula 1 race weekend has practice sessions, qualifying and the Grand Prix itself, which usually lasts around 90 minutes. The season runs from March to December across five continents."},
	{any: []string{"car", "vehicle"},
		response: "A Formula 1 car combines a hybrid power unit with aerodynamics that generate huge downforce. Cars exceed 350 km/h and corner at forces of several g."},
}

const helpText = "I'm your Formula 1 assistant. Ask me about drivers such as Lewis Hamilton or Max Verstappen, teams like Mercedes or Ferrari, circuits like Monaco or Silverstone, or how the championship works."

// RuleBased 按关键词表回答，不依赖任何外部服务。
// 没有关键词命中时引用排名最高的检索片段。
type RuleBased struct {
	noContextText string
}

// NewRuleBased 创建规则生成器。noContextText 是检索为空时上下文使用的占位文本。
func NewRuleBased(noContextText string) *RuleBased {
	return &RuleBased{noContextText: noContextText}
}

// Generate 只看当前问题，不使用会话历史。
func (g *RuleBased) Generate(ctx context.Context, query, contextText string, _ []model.ConversationTurn) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	q := strings.ToLower(query)
	for _, r := range rules {
		if r.matches(q) {
			return r.response, nil
		}
	}
	if passage := firstPassage(contextText); passage != "" && contextText != g.noContextText {
		return "Here is what I found: " + passage, nil
	}
	return helpText, nil
}

func (g *RuleBased) Stream(ctx context.Context, query, contextText string, history []model.ConversationTurn, emit func(string) error) (string, error) {
	answer, err := g.Generate(ctx, query, contextText, history)
	if err != nil {
		return "", err
	}
	words := strings.SplitAfter(answer, " ")
	for _, w := range words {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := emit(w); err != nil {
			return "", err
		}
	}
	return answer, nil
}

// firstPassage 取第一个上下文块并去掉 "[title]: " 前缀
func firstPassage(contextText string) string {
	block, _, _ := strings.Cut(strings.TrimSpace(contextText), "\n\n")
	if strings.HasPrefix(block, "[") {
		if i := strings.Index(block, "]: "); i >= 0 {
			block = block[i+3:]
		}
	}
	return strings.TrimSpace(block)
}
