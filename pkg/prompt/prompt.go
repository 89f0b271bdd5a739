// Package prompt is the wisdom responder: chat messages that address the
// bot by its wake word get one random line of parrot wisdom back. It runs
// as a rule engine with a single choice-list rule over the prompt queue.
package prompt

import (
	"regexp"

	"github.com/raphaelpaiva/loro/pkg/rules"
)

// Rule builds the responder's single rule. The sorter only routes prompts
// here, but the regex re-checks the wake word so a stale binding cannot
// make the bot answer unaddressed messages.
func Rule(wakeWord string) *rules.Rule {
	return &rules.Rule{
		Name:     "wisdom",
		Regex:    regexp.MustCompile(`\b` + regexp.QuoteMeta(rules.Normalize(wakeWord)) + `\b`),
		Response: rules.Response{Choices: Wisdom},
	}
}

// Wisdom is the stock of replies, drawn uniformly at random.
var Wisdom = []string{
	"A velocidade da luz é mais rápida do que a da escuridão.",
	"Se você tentar falhar e conseguir, falhou em falhar.",
	"O tempo voa, mas os relógios não têm asas.",
	"Nunca corra com uma tesoura, a menos que esteja participando de uma maratona de cortadores de papel.",
	"Por que o esqueleto não brigou com ninguém? Porque ele não tem estômago para isso!",
	"O que o tomate disse para o pepino? Você é um pepino.",
	"Qual é o animal mais antigo? A zebra, porque está em preto e branco desde sempre.",
	"Por que o livro de matemática está sempre estressado? Porque tem muitos problemas.",
	"Se o dinheiro falasse, o meu diria 'adeus'.",
	"A paciência é uma virtude, mas também é o que dizem quando estão presos no trânsito.",
	"Se a prática leva à perfeição, e ninguém é perfeito, por que praticar?",
	"A única coisa que aprendemos com a história é que nunca aprendemos com a história.",
	"Por que o peixe é tão bem educado? Porque nada de braçada!",
	"O que aconteceu com o pássaro que não queria compartilhar? Ficou sozinho.",
	"Como o esqueleto liga para os amigos? Pela telefonia esquelética.",
	"Por que o lápis não pode ser o detetive? Porque ele sempre perde o traço.",
	"Quem semeia vento pode ficar gripado.",
	"Onde quer que você esteja você sempre estará lá.",
	"Por que o vinho suave não é chamado de suavinho?",
	"Para bom... meia basta.",
	"Por que 'tudo junto' se escreve separado e 'separado' se escreve tudo junto?",
	"Um é pouco, dois é bom e três é ímpar.",
	"O POVO UNIDO... é gente pra caramba!",
	"É tudo questão de ponto de vista. Perder é como ganhar de trás para frente.",
	"O unicórnio roxo sempre dança em cima do arco-íris, mas nunca encontra o pote de ouro.",
	"Se a vida te der limões, cuidado para não espirrar suco no olho.",
	"A vida é como um buraco negro: sempre sugando tudo à sua volta, mas nunca cheia.",
	"Mas vale um pássaro na mão do que água mole, pedra dura.",
	"A vida é como uma bicicleta: você só cai quando tenta andar sem as mãos.",
	"No restaurante da vida, eu ando queimando até o miojo.",
	"Algo de errado não está certo.",
	"Diz-me com quem andas, que te direi que estou com preguiça de sair de casa.",
	"A vida é como um jogo de tabuleiro, mas as regras são escritas em chinês antigo.",
	"Quem ri por último talvez esteja só fingindo ter entendido a piada.",
	"Mais vale tarde do que muito tarde.",
	"Qualquer idiota é capaz de pintar um quadro, mas somente um gênio é capaz de vendê-lo.",
	"À beira de um precipício só há uma maneira de andar para a frente: é dar um passo atrás.",
	"Meu problema é que eu falei 'quero ser herdeiro' e Deus entendeu 'guerreiro'.",
	"Meus amigos sempre me falam que sou muito do contra, mas eu não concordo.",
	"Precisamos marcar logo o próximo compromisso que vamos cancelar.",
	"Vou te dar um conselho. Depois você me conta o que aconteceu quando você não o seguiu.",
	"Num relacionamento, o importante é o que importa.",
	"O casamento é a principal razão de qualquer divórcio.",
	"Amigos, amigos, namorados à parte.",
	"De amor em amor, eu continuo solteiro.",
	"Os primeiros cinco dias depois do final de semana são os mais difíceis.",
	"Eu nunca esqueço um rosto, mas para o seu terei que abrir uma exceção.",
	"Fazer nada é difícil, porque você nunca sabe quando vai terminar.",
	"Sim, eu repito roupa. Na minha casa, tem água e sabão.",
	"Eu sou tão desorganizado que perco coisas que nem sabia que tinha.",
	"Tudo bem que dinheiro não traz felicidade, mas eu prefiro ser infeliz em Paris.",
	"Eu costumava achar que era indeciso, agora, eu já não sei se sou.",
	"Minha carteira parece uma cebola: tenho vontade de chorar sempre que abro.",
	"Dinheiro nem sempre é bom. Às vezes, ele é ótimo e, em outras, é maravilhoso.",
	"A vida é bela, a gente é que estraga ela.",
	"Não se preocupe: se o plano A não funcionar, você ainda tem letras para tentar.",
	"Lembre-se de que, assim como todo mundo, você é único(a).",
	"Aquele que acorda primeiro, boceja o dia inteiro.",
	"Tudo passa. Nem que seja por cima de você, mas passa.",
	"Ter a consciência tranquila é um claro sinal de problema de memória.",
	"Quando as pessoas disserem que vai se arrepender de algo pela manhã, durma até o meio-dia.",
	"Desistir é para fracos. Por isso que prefiro nem tentar.",
	"Não desista devido às derrotas de hoje. Amanhã tem mais.",
	"São tantos os dias de luta que estou querendo me matricular no judô.",
	"Se você se acha muito pequeno(a) para fazer a diferença, tente dormir com um mosquito no quarto.",
	"Pior do que perder o sono de madrugada é encontrá-lo pela manhã.",
	"Não deixe que nada te desanime, afinal, até um pé na bunda te empurra para a frente.",
	"Café existe para as pessoas poderem odiar seus trabalhos com entusiasmo.",
	"Se a vida está fácil, provavelmente você está fazendo alguma coisa de errado.",
	"Paciência é igual dinheiro: não tenho e, quando tenho, vai embora rápido.",
	"Se você está lendo isso…. É porque você sabe ler. Parabéns!",
	"Sexta é a minha segunda palavra preferida com S.",
	"Não tem problema você não gostar de mim, nem todo mundo tem bom gosto mesmo.",
	"Bom senso é como desodorante: aqueles que mais precisam nunca usam.",
	"Eu não acredito em signos, como todo bom sagitariano.",
	"Sinto que deveria estudar, mas prefiro deitar e esperar passar.",
	"A gente tem muito em comum: você respira, eu também…",
	"Duas coisas que não me faltam: vontade de emagrecer e fome o dia inteiro.",
	"Eu sempre fui pobre, mas, neste mês, estou de parabéns!",
	"Se lembra de quando eu pedi a sua opinião? Não? Pois é, nem eu!",
	"Até a bateria do meu celular dura mais do que o amor eterno de alguns casais.",
	"Tudo que eu gosto é caro, engorda ou visualiza e não responde.",
	"Me desculpem pelas mensagens que enviei ontem, meu celular estava bêbado.",
	"Nunca julgue um livro pelo filme.",
	"Não me diga que o céu é o limite se já deixaram pegadas na lua.",
	"Quem ri por último, não entendeu a piada.",
	"O banco é um lugar que vai te emprestar dinheiro se você provar que não precisa.",
	"Toda regra tem uma exceção. Esta regra não é exceção.",
	"Querida Matemática, cresça e resolva seus problemas sozinha.",
	"Deus fez o mundo. Mas todas as outras coisas são feitas na China.",
	"Enquanto os outros discutem se o copo está meio cheio ou meio vazio, eu prefiro beber a água.",
	"Você não odeia pessoas que respondem às próprias perguntas? Eu odeio!",
	"Se procrastinação fosse uma arte, eu seria o Picasso.",
	"Eu sou multitarefa: consigo procrastinar várias coisas ao mesmo tempo.",
	"Eu sou super a favor da ironia, mas desejar 'bom dia' já é ir longe demais.",
	"O 'não' eu já tenho, agora só falta a humilhação.",
	"Não é raiva, é fome.",
	"Dessa água beberei e me afogarei.",
	"Oi, meu nome é Alceu. Alceu Dispor.",
	"Você é como asma: tira o meu fôlego.",
	"Eu não sou esquecido(a), tenho uma memória seletiva.",
	"Paciência é uma virtude, mas eu não quero esperar.",
	"Sinta-se em casa, a louça suja fica ali.",
	"Dormir é grátis, o que custa é levantar.",
	"Se sou bom partido, imagina inteiro?!",
	"Se eu fosse você, gostaria de ser eu mesmo(a).",
	"A internet é a única que cai e ninguém acha graça.",
	"Hoje eu acordei cedo para poder me atrasar com calma.",
	"Esperar pelo inesperado torna o inesperado esperado?",
	"Eu aplaudi porque terminou, não porque eu gostei.",
	"Desculpe o atraso, é que eu não queria vir.",
	"Não sou preguiçoso(a), só ativei o modo de economia de energia.",
	"Eu sou calmo, as pessoas é que me irritam.",
}
